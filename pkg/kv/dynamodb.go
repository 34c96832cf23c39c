package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	dynamoKeyAttribute = "entry_key"
	// BatchWriteItem accepts at most 25 requests.
	dynamoBatchSize    = 25
	dynamoMaxAttempts  = 5
	dynamoRetryBackoff = 50 * time.Millisecond
)

// DynamoDBAPI is the part of the DynamoDB client used by DynamoStore
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoConfig configures the DynamoDB client. Endpoint allows DynamoDB Local.
type DynamoConfig struct {
	Region   string
	Endpoint string
}

// NewDynamoClient creates a client from the default AWS credential chain
func NewDynamoClient(ctx context.Context, cfg DynamoConfig) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

type dynamoItem struct {
	Key       string `dynamodbav:"entry_key"`
	Value     []byte `dynamodbav:"entry_value"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// DynamoStore keeps one item per key in a table whose partition key is the
// string attribute entry_key.
type DynamoStore struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

func NewDynamoStore(client DynamoDBAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table, now: time.Now}
}

func dynamoKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamoKeyAttribute: &types.AttributeValueMemberS{Value: key},
	}
}

func (d *DynamoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(d.table),
		Key:            dynamoKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to decode key %q: %w", key, err)
	}
	if item.Value == nil {
		item.Value = []byte{}
	}
	return item.Value, true, nil
}

func (d *DynamoStore) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	av, err := attributevalue.MarshalMap(dynamoItem{
		Key:       key,
		Value:     value,
		UpdatedAt: d.now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("failed to encode key %q: %w", key, err)
	}
	if _, err := d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}
	return nil
}

// Delete removes keys in batches, retrying unprocessed requests.
func (d *DynamoStore) Delete(ctx context.Context, keys ...string) error {
	seen := make(map[string]struct{}, len(keys))
	requests := make([]types.WriteRequest, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup || k == "" {
			continue
		}
		seen[k] = struct{}{}
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: dynamoKey(k)},
		})
	}

	for start := 0; start < len(requests); start += dynamoBatchSize {
		end := min(start+dynamoBatchSize, len(requests))
		if err := d.batchDelete(ctx, requests[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (d *DynamoStore) batchDelete(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{d.table: requests}
	for attempt := 0; attempt < dynamoMaxAttempts; attempt++ {
		out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("failed to delete keys: %w", err)
		}
		if len(out.UnprocessedItems[d.table]) == 0 {
			return nil
		}
		pending = out.UnprocessedItems

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dynamoRetryBackoff << attempt):
		}
	}
	return fmt.Errorf("failed to delete keys: %d requests unprocessed", len(pending[d.table]))
}
