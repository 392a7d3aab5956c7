package config

import (
	"os"
	"runtime"

	"github.com/grantdesk/applicants/backend/model"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Generation GenerationConfig `yaml:"generation"`
	Templates  TemplatesConfig  `yaml:"templates"`
	Converter  ConverterConfig  `yaml:"converter"`
	Mail       MailConfig       `yaml:"mail"`
	Signing    SigningConfig    `yaml:"signing"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Auth       AuthConfig       `yaml:"auth"`
	Users      []User           `yaml:"users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, memory
	// Path of the sqlite file. ":memory:" keeps the database in process memory.
	Path string `yaml:"path"`
	// MaxSubjects bounds the memory driver, 0 = unlimited
	MaxSubjects int `yaml:"max_subjects"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"` // disk, minio
	Root    string      `yaml:"root"`
	Minio   MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type GenerationConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	APIToken       string `yaml:"api_token"`
	// MaxDocumentBytes caps a generation service response body
	MaxDocumentBytes int64                 `yaml:"max_document_bytes"`
	Kinds            map[string]KindConfig `yaml:"kinds"`
}

// KindConfig carries everything that differs between document kinds
type KindConfig struct {
	Endpoints             []string `yaml:"endpoints"`
	Prefix                string   `yaml:"prefix"`
	Dir                   string   `yaml:"dir"`
	BackupTemplate        string   `yaml:"backup_template"`
	SoleCandidateFallback *bool    `yaml:"sole_candidate_fallback"`
}

type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

type ConverterConfig struct {
	// Binary is a local override tried before any candidate
	Binary         string   `yaml:"binary"`
	Candidates     []string `yaml:"candidates"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	WorkDir        string   `yaml:"work_dir"`
}

type MailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SigningConfig struct {
	Seed string `yaml:"seed"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// DefaultMaxDocumentBytes bounds a generated document when nothing is configured
const DefaultMaxDocumentBytes int64 = 20 << 20

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.MaxSubjects < 0 {
		c.Database.MaxSubjects = 0
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/applicants.db"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "disk"
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "storage"
	}
	if c.Generation.TimeoutSeconds == 0 {
		c.Generation.TimeoutSeconds = 5
	}
	if c.Generation.MaxDocumentBytes <= 0 {
		c.Generation.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if c.Templates.Dir == "" {
		c.Templates.Dir = "templates"
	}
	if c.Converter.TimeoutSeconds == 0 {
		c.Converter.TimeoutSeconds = 60
	}
	if len(c.Converter.Candidates) == 0 {
		c.Converter.Candidates = DefaultConverterCandidates(runtime.GOOS)
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 20
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}

	if c.Generation.Kinds == nil {
		c.Generation.Kinds = make(map[string]KindConfig)
	}
	for kind, def := range defaultKinds() {
		kc := c.Generation.Kinds[string(kind)]
		if kc.Prefix == "" {
			kc.Prefix = def.Prefix
		}
		if kc.Dir == "" {
			kc.Dir = def.Dir
		}
		if kc.BackupTemplate == "" {
			kc.BackupTemplate = def.BackupTemplate
		}
		if kc.SoleCandidateFallback == nil {
			kc.SoleCandidateFallback = def.SoleCandidateFallback
		}
		c.Generation.Kinds[string(kind)] = kc
	}
}

func defaultKinds() map[model.DocumentKind]KindConfig {
	on, off := true, false
	return map[model.DocumentKind]KindConfig{
		model.KindContract: {
			Prefix:                "contract",
			Dir:                   "contracts",
			BackupTemplate:        "contract.docx",
			SoleCandidateFallback: &off,
		},
		model.KindConsultingContract: {
			Prefix:                "consulting_contract",
			Dir:                   "consulting_contracts",
			BackupTemplate:        "consulting_contract.docx",
			SoleCandidateFallback: &off,
		},
		model.KindAuthorityDocument: {
			Prefix:                "authority",
			Dir:                   "authority_documents",
			BackupTemplate:        "authority_document.docx",
			SoleCandidateFallback: &on,
		},
	}
}

// DefaultConverterCandidates lists the usual office suite install locations for goos
func DefaultConverterCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/LibreOffice.app/Contents/MacOS/soffice",
			"/opt/homebrew/bin/soffice",
			"/usr/local/bin/soffice",
		}
	case "windows":
		return []string{
			`C:\Program Files\LibreOffice\program\soffice.exe`,
			`C:\Program Files (x86)\LibreOffice\program\soffice.exe`,
		}
	default:
		return []string{
			"/usr/bin/soffice",
			"/usr/bin/libreoffice",
			"/usr/local/bin/soffice",
			"/opt/libreoffice/program/soffice",
			"/snap/bin/libreoffice",
		}
	}
}

// Kind returns the configuration of a document kind
func (c *Config) Kind(kind model.DocumentKind) KindConfig {
	return c.Generation.Kinds[string(kind)]
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
