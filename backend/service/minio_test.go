package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grantdesk/applicants/backend/config"
)

func TestNewMinioStore(t *testing.T) {
	cfg := &config.MinioConfig{
		Endpoint:  "invalid-endpoint:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
		UseSSL:    false,
	}

	store, err := NewMinioStore(cfg, "documents")
	// Creating the client does not contact the server
	if err != nil {
		t.Logf("NewMinioStore returned error: %v", err)
	} else if store == nil {
		t.Error("Expected non-nil store")
	}
}

func TestMinioStoreObjectName(t *testing.T) {
	tests := []struct {
		root     string
		name     string
		expected string
	}{
		{"documents", "contracts/contract_1.pdf", "documents/contracts/contract_1.pdf"},
		{"/documents/", "/contracts/contract_1.pdf", "documents/contracts/contract_1.pdf"},
		{"", "contracts/contract_1.pdf", "contracts/contract_1.pdf"},
	}

	for _, tt := range tests {
		store, err := NewMinioStore(&config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}, tt.root)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if got := store.objectName(tt.name); got != tt.expected {
			t.Errorf("Expected '%s', got '%s'", tt.expected, got)
		}
	}
}

// A bare HTTP server answering S3 style errors is enough to exercise error translation
func newS3ErrorServer(t *testing.T, code string, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code + `</Code><Message>test</Message></Error>`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestMinioStoreReadMissingObject(t *testing.T) {
	server := newS3ErrorServer(t, "NoSuchKey", http.StatusNotFound)

	store, err := NewMinioStore(&config.MinioConfig{
		Endpoint:  server.Listener.Addr().String(),
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "bucket",
	}, "documents")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err = store.Read(context.Background(), "contracts/contract_1.pdf")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("Expected ErrFileNotFound, got %v", err)
	}
}

func TestMinioStoreWithCancelledContext(t *testing.T) {
	store, err := NewMinioStore(&config.MinioConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "test",
		SecretKey: "test",
		Bucket:    "test",
	}, "documents")
	if err != nil {
		t.Skip("Could not create MinIO store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Write(ctx, "contracts/x.pdf", []byte("pdf"), "application/pdf"); err == nil {
		t.Error("Expected write with cancelled context to fail")
	}
}
