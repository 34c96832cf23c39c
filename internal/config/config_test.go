package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 30, cfg.Monitoring.RecentWindowDays)
	assert.Equal(t, 2*time.Second, cfg.Blockchain.MinDelay.Std())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.GetServerAddr())
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": 9090, "read_timeout": "5s"},
		"storage": {"driver": "memory"},
		"blockchain": {"min_delay": "1s", "max_delay": "3s"},
		"monitoring": {"recent_window_days": 14}
	}`), 0o600))

	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("PREDICTION_TIMEOUT", "2s")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Blockchain.MaxDelay.Std())
	assert.Equal(t, 14, cfg.Monitoring.RecentWindowDays)
	assert.Equal(t, "key", cfg.Prediction.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Prediction.Timeout.Std())
	assert.Equal(t, "gemini-2.0-flash", cfg.Prediction.Model)
}

func TestLoadConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"storage": {"driver": "postgres"}}`), 0o600))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "dsn")

	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "parse")

	t.Setenv("SERVER_PORT", "eighty")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "SERVER_PORT")
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1m30s"`)))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, d.UnmarshalJSON([]byte(`1000000000`)))
	assert.Equal(t, time.Second, d.Std())

	out, err := Duration(time.Minute).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1m0s"`, string(out))

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}

func TestLoadConfigDynamoDB(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "dynamodb")
	t.Setenv("DYNAMODB_TABLE", "field_ledger")
	t.Setenv("DYNAMODB_ENDPOINT", "http://localhost:8000")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "dynamodb", cfg.Storage.Driver)
	assert.Equal(t, "field_ledger", cfg.DynamoDB.Table)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoDB.Endpoint)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)

	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"dynamodb": {"table": ""}}`), 0o600))
	t.Setenv("DYNAMODB_TABLE", "")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "table")
}

func TestLoadConfigMongo(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGODB_DATABASE", "field")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "field", cfg.Mongo.Database)
	assert.Equal(t, "ledger_entries", cfg.Mongo.Collection)

	t.Setenv("MONGODB_URI", "")
	_, err = LoadConfig("")
	assert.ErrorContains(t, err, "uri")
}
