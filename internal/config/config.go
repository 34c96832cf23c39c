package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `json:"server"`
	Storage     StorageConfig     `json:"storage"`
	Redis       RedisConfig       `json:"redis"`
	DynamoDB    DynamoDBConfig    `json:"dynamodb"`
	Mongo       MongoConfig       `json:"mongo"`
	Security    SecurityConfig    `json:"security"`
	Logging     LoggingConfig     `json:"logging"`
	Prediction  PredictionConfig  `json:"prediction"`
	Blockchain  BlockchainConfig  `json:"blockchain"`
	Photos      PhotosConfig      `json:"photos"`
	Monitoring  MonitoringConfig  `json:"monitoring"`
	Preferences PreferencesConfig `json:"preferences"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	ReadTimeout     Duration `json:"read_timeout"`
	WriteTimeout    Duration `json:"write_timeout"`
	IdleTimeout     Duration `json:"idle_timeout"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
}

// StorageConfig selects the ledger backend
type StorageConfig struct {
	// Driver is one of memory, sqlite, postgres, redis, dynamodb or mongo.
	Driver     string `json:"driver"`
	SQLitePath string `json:"sqlite_path"`
	DSN        string `json:"dsn"`
}

// RedisConfig is used when Storage.Driver is redis
type RedisConfig struct {
	Addr      string `json:"addr"`
	Password  string `json:"password"`
	DB        int    `json:"db"`
	KeyPrefix string `json:"key_prefix"`
}

// DynamoDBConfig is used when Storage.Driver is dynamodb. The table must have
// a string partition key named entry_key.
type DynamoDBConfig struct {
	Table    string `json:"table"`
	Region   string `json:"region"`
	Endpoint string `json:"endpoint"`
}

// MongoConfig is used when Storage.Driver is mongo
type MongoConfig struct {
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

type LoggingConfig struct {
	Level string `json:"level"`
	// Format is json or console.
	Format string `json:"format"`
}

// PredictionConfig configures the AI oracle. An empty APIKey disables it.
type PredictionConfig struct {
	APIKey  string   `json:"api_key"`
	Model   string   `json:"model"`
	Timeout Duration `json:"timeout"`
}

type BlockchainConfig struct {
	MinDelay          Duration `json:"min_delay"`
	MaxDelay          Duration `json:"max_delay"`
	ReconcileSchedule string   `json:"reconcile_schedule"`
}

// PhotosConfig configures photo storage. An empty Bucket keeps photos in
// memory.
type PhotosConfig struct {
	Bucket          string   `json:"bucket"`
	Region          string   `json:"region"`
	Endpoint        string   `json:"endpoint"`
	AccessKeyID     string   `json:"access_key_id"`
	SecretAccessKey string   `json:"secret_access_key"`
	UsePathStyle    bool     `json:"use_path_style"`
	URLExpiry       Duration `json:"url_expiry"`
}

type MonitoringConfig struct {
	RecentWindowDays int `json:"recent_window_days"`
}

// PreferencesConfig holds defaults for users without saved preferences
type PreferencesConfig struct {
	Theme        string `json:"theme"`
	DynamicColor bool   `json:"dynamic_color"`
	Language     string `json:"language"`
	Timezone     string `json:"timezone"`
}

// Duration is a time.Duration written as a string ("15s") in JSON
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("invalid duration %s", b)
		}
		*d = Duration(n)
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     Duration(15 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			IdleTimeout:     Duration(60 * time.Second),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Storage: StorageConfig{
			Driver:     "sqlite",
			SQLitePath: "ledger.db",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			KeyPrefix: "ledger:",
		},
		DynamoDB: DynamoDBConfig{
			Table:  "ledger_entries",
			Region: "us-east-1",
		},
		Mongo: MongoConfig{
			Database:   "ledger",
			Collection: "ledger_entries",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Prediction: PredictionConfig{
			Model:   "gemini-2.0-flash",
			Timeout: Duration(15 * time.Second),
		},
		Blockchain: BlockchainConfig{
			MinDelay:          Duration(2 * time.Second),
			MaxDelay:          Duration(5 * time.Second),
			ReconcileSchedule: "@every 1m",
		},
		Photos: PhotosConfig{
			Region:    "us-east-1",
			URLExpiry: Duration(7 * 24 * time.Hour),
		},
		Monitoring: MonitoringConfig{
			RecentWindowDays: 30,
		},
		Preferences: PreferencesConfig{
			Theme:    "system",
			Language: "en",
			Timezone: "UTC",
		},
	}
}

// LoadConfig loads configuration from file and environment variables. A
// .env file in the working directory is read first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func overrideWithEnv(config *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	setDuration := func(key string, dst *Duration) error {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = Duration(d)
		}
		return nil
	}

	setString("SERVER_HOST", &config.Server.Host)
	if err := setInt("SERVER_PORT", &config.Server.Port); err != nil {
		return err
	}

	setString("STORAGE_DRIVER", &config.Storage.Driver)
	setString("SQLITE_PATH", &config.Storage.SQLitePath)
	setString("DATABASE_URL", &config.Storage.DSN)

	setString("REDIS_ADDR", &config.Redis.Addr)
	setString("REDIS_PASSWORD", &config.Redis.Password)
	if err := setInt("REDIS_DB", &config.Redis.DB); err != nil {
		return err
	}

	setString("DYNAMODB_TABLE", &config.DynamoDB.Table)
	setString("AWS_REGION", &config.DynamoDB.Region)
	setString("DYNAMODB_ENDPOINT", &config.DynamoDB.Endpoint)

	setString("MONGODB_URI", &config.Mongo.URI)
	setString("MONGODB_DATABASE", &config.Mongo.Database)
	setString("MONGODB_COLLECTION", &config.Mongo.Collection)

	setString("JWT_SECRET", &config.Security.JWTSecret)
	setString("LOG_LEVEL", &config.Logging.Level)
	setString("LOG_FORMAT", &config.Logging.Format)

	setString("GEMINI_API_KEY", &config.Prediction.APIKey)
	setString("GEMINI_MODEL", &config.Prediction.Model)
	if err := setDuration("PREDICTION_TIMEOUT", &config.Prediction.Timeout); err != nil {
		return err
	}

	if err := setDuration("BLOCKCHAIN_MIN_DELAY", &config.Blockchain.MinDelay); err != nil {
		return err
	}
	if err := setDuration("BLOCKCHAIN_MAX_DELAY", &config.Blockchain.MaxDelay); err != nil {
		return err
	}
	setString("BLOCKCHAIN_RECONCILE_SCHEDULE", &config.Blockchain.ReconcileSchedule)

	setString("PHOTOS_BUCKET", &config.Photos.Bucket)
	setString("AWS_REGION", &config.Photos.Region)
	setString("PHOTOS_ENDPOINT", &config.Photos.Endpoint)
	setString("AWS_ACCESS_KEY_ID", &config.Photos.AccessKeyID)
	setString("AWS_SECRET_ACCESS_KEY", &config.Photos.SecretAccessKey)

	return setInt("MONITORING_RECENT_WINDOW_DAYS", &config.Monitoring.RecentWindowDays)
}

// Validate checks values that would otherwise fail later at startup
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "memory", "sqlite", "redis":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver postgres requires a dsn")
		}
	case "dynamodb":
		if c.DynamoDB.Table == "" {
			return fmt.Errorf("storage driver dynamodb requires a table")
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("storage driver mongo requires a uri")
		}
		if c.Mongo.Database == "" || c.Mongo.Collection == "" {
			return fmt.Errorf("storage driver mongo requires a database and collection")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Blockchain.MaxDelay < c.Blockchain.MinDelay {
		return fmt.Errorf("blockchain max_delay must not be below min_delay")
	}
	if c.Monitoring.RecentWindowDays <= 0 {
		return fmt.Errorf("monitoring recent_window_days must be positive")
	}
	return nil
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
