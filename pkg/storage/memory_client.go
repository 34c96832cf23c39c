package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MemoryS3Client keeps objects in process memory. It backs photo uploads when
// no bucket is configured, and tests.
type MemoryS3Client struct {
	objects map[string][]byte
	mu      sync.RWMutex
}

func NewMemoryS3Client() *MemoryS3Client {
	return &MemoryS3Client{objects: make(map[string][]byte)}
}

func (c *MemoryS3Client) Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.objects[bucket+"/"+key] = data
	c.mu.Unlock()
	return nil
}

func (c *MemoryS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.RLock()
	data, ok := c.objects[bucket+"/"+key]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("object %s/%s not found", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *MemoryS3Client) Delete(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	delete(c.objects, bucket+"/"+key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return "memory://" + bucket + "/" + key, nil
}

// Len returns the number of stored objects
func (c *MemoryS3Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.objects)
}
