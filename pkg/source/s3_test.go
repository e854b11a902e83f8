package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localix/preloadd/pkg/fetch"
)

// fakeS3 serves path-style GetObject requests from an in-memory map.
func fakeS3(t *testing.T, objects map[string]string) *S3 {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/exports-bucket/")
		body, ok := objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	s, err := NewS3FromConfig(context.Background(), S3Config{
		Bucket:          "exports-bucket",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		ForcePathStyle:  true,
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		KeyPrefix:       "nightly/",
		Objects: map[string]S3Object{
			"products":  {Key: "products.json", ItemsField: "products"},
			"dashboard": {Key: "/dashboard.json"},
			"missing":   {Key: "missing.json"},
		},
	})
	require.NoError(t, err)
	return s
}

func TestNewS3FromConfigRequiresBucket(t *testing.T) {
	_, err := NewS3FromConfig(context.Background(), S3Config{})
	assert.Error(t, err)
}

func TestS3Fetch(t *testing.T) {
	s := fakeS3(t, map[string]string{
		"nightly/products.json":  `{"products":[{"sku":"a"},{"sku":"b"}]}`,
		"nightly/dashboard.json": `{"ventas_hoy": 12}`,
	})

	r, err := s.Fetch(context.Background(), "products", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Count)

	r, err = s.Fetch(context.Background(), "dashboard", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(12), r.Object["ventas_hoy"])
}

func TestS3FetchNotFound(t *testing.T) {
	s := fakeS3(t, nil)

	_, err := s.Fetch(context.Background(), "missing", nil)
	require.Error(t, err)

	var terr *TransportError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, http.StatusNotFound, terr.StatusCode)
	assert.Equal(t, fetch.KindTransport, fetch.Classify(err).Kind)
}

func TestS3FetchUnknownResource(t *testing.T) {
	s := fakeS3(t, nil)
	_, err := s.Fetch(context.Background(), "orders", nil)
	assert.Error(t, err)
}
