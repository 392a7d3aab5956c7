package config

import (
	"os"
	"testing"

	"github.com/grantdesk/applicants/backend/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	tmpFile.Close()
	return tmpFile.Name()
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
log:
  level: "debug"
  format: "json"
database:
  path: "/var/lib/applicants/state.db"
storage:
  backend: "minio"
  root: "documents"
  minio:
    endpoint: "localhost:9000"
    access_key: "minioadmin"
    secret_key: "minioadmin"
    bucket: "applicant-docs"
generation:
  timeout_seconds: 3
  api_token: "gen-token"
  kinds:
    consulting_contract:
      endpoints:
        - "https://docs.example.test/consulting"
        - "https://docs-backup.example.test/consulting"
      prefix: "consultoria"
converter:
  binary: "/opt/office/soffice"
  timeout_seconds: 30
mail:
  enabled: true
  host: "smtp.example.test"
  from: "grants@example.test"
signing:
  seed: "sign-seed"
auth:
  jwt_secret: "test-secret"
  token_expire_hours: 48
users:
  - username: "testuser"
    password: "testpass"
    role: "admin"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
	if cfg.Storage.Backend != "minio" || cfg.Storage.Minio.Bucket != "applicant-docs" {
		t.Errorf("Unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Generation.TimeoutSeconds != 3 {
		t.Errorf("Expected generation timeout 3, got %d", cfg.Generation.TimeoutSeconds)
	}

	consulting := cfg.Kind(model.KindConsultingContract)
	if len(consulting.Endpoints) != 2 {
		t.Errorf("Expected 2 consulting endpoints, got %d", len(consulting.Endpoints))
	}
	if consulting.Prefix != "consultoria" {
		t.Errorf("Expected overridden prefix, got %s", consulting.Prefix)
	}
	if consulting.Dir != "consulting_contracts" {
		t.Errorf("Expected default dir to be kept, got %s", consulting.Dir)
	}
	if cfg.Converter.Binary != "/opt/office/soffice" || cfg.Converter.TimeoutSeconds != 30 {
		t.Errorf("Unexpected converter config %+v", cfg.Converter)
	}
	if !cfg.Mail.Enabled || cfg.Mail.Port != 587 {
		t.Errorf("Unexpected mail config %+v", cfg.Mail)
	}
	if cfg.Auth.TokenExpireHours != 48 {
		t.Errorf("Expected token_expire_hours 48, got %d", cfg.Auth.TokenExpireHours)
	}
	if len(cfg.Users) != 1 || cfg.Users[0].Role != "admin" {
		t.Errorf("Unexpected users %+v", cfg.Users)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Expected default log format text, got %s", cfg.Log.Format)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Expected default database driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Storage.Backend != "disk" {
		t.Errorf("Expected default storage backend disk, got %s", cfg.Storage.Backend)
	}
	if cfg.Generation.TimeoutSeconds != 5 {
		t.Errorf("Expected default generation timeout 5, got %d", cfg.Generation.TimeoutSeconds)
	}
	if cfg.Generation.MaxDocumentBytes != DefaultMaxDocumentBytes {
		t.Errorf("Expected default max_document_bytes %d, got %d", DefaultMaxDocumentBytes, cfg.Generation.MaxDocumentBytes)
	}
	if cfg.Converter.TimeoutSeconds != 60 {
		t.Errorf("Expected default converter timeout 60, got %d", cfg.Converter.TimeoutSeconds)
	}
	if len(cfg.Converter.Candidates) == 0 {
		t.Error("Expected default converter candidates")
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token_expire_hours 24, got %d", cfg.Auth.TokenExpireHours)
	}

	for _, kind := range model.AllKinds {
		kc := cfg.Kind(kind)
		if kc.Prefix == "" || kc.Dir == "" || kc.BackupTemplate == "" {
			t.Errorf("Expected defaults for %s, got %+v", kind, kc)
		}
		if kc.SoleCandidateFallback == nil {
			t.Errorf("Expected sole candidate default for %s", kind)
		}
	}
	if !*cfg.Kind(model.KindAuthorityDocument).SoleCandidateFallback {
		t.Error("Expected sole candidate fallback enabled for authority documents")
	}
	if *cfg.Kind(model.KindContract).SoleCandidateFallback {
		t.Error("Expected sole candidate fallback disabled for contracts")
	}
}

func TestLoadNonExistent(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: yaml: content:")

	_, err := Load(path)
	if err == nil {
		t.Error("Expected error for invalid YAML")
	}
}

func TestDefaultConverterCandidates(t *testing.T) {
	for _, goos := range []string{"linux", "darwin", "windows"} {
		if len(DefaultConverterCandidates(goos)) == 0 {
			t.Errorf("Expected candidates for %s", goos)
		}
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{
		Users: []User{
			{Username: "user1", Password: "pass1", Role: "admin"},
			{Username: "user2", Password: "pass2", Role: "staff"},
		},
	}

	user := cfg.FindUser("user1")
	if user == nil {
		t.Fatal("Expected to find user1")
	}
	if user.Password != "pass1" {
		t.Errorf("Expected password pass1, got %s", user.Password)
	}

	user = cfg.FindUser("nonexistent")
	if user != nil {
		t.Error("Expected nil for non-existent user")
	}
}
