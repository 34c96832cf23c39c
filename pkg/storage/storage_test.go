package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryS3Client(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryS3Client()

	require.NoError(t, c.Upload(ctx, "photos", "a/b.jpg", "image/jpeg", strings.NewReader("jpeg")))
	assert.Equal(t, 1, c.Len())

	rc, err := c.Download(ctx, "photos", "a/b.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", string(data))

	url, err := c.GetPresignedURL(ctx, "photos", "a/b.jpg", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "memory://photos/a/b.jpg", url)

	require.NoError(t, c.Delete(ctx, "photos", "a/b.jpg"))
	_, err = c.Download(ctx, "photos", "a/b.jpg")
	assert.Error(t, err)
}

func TestAWSS3ClientPresignsWithoutNetwork(t *testing.T) {
	c, err := NewAWSS3Client(context.Background(), S3Config{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "test",
		SecretAccessKey: "secret",
		UsePathStyle:    true,
	})
	require.NoError(t, err)

	url, err := c.GetPresignedURL(context.Background(), "photos", "monitoring/p1/r1/x.jpg", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/photos/monitoring/p1/r1/x.jpg?"))
	assert.Contains(t, url, "X-Amz-Expires=900")
}
