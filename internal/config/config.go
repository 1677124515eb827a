package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

type Config struct {
	Server struct {
		Port         int           `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"readTimeout"`
		WriteTimeout time.Duration `yaml:"writeTimeout"`
		MaxUploadMB  int64         `yaml:"maxUploadMB"`
		CORSOrigins  []string      `yaml:"corsOrigins"`
	} `yaml:"server"`

	Database struct {
		Driver      string `yaml:"driver"` // mysql | postgres | sqlite | mongo
		Host        string `yaml:"host"`
		Port        int    `yaml:"port"`
		User        string `yaml:"user"`
		Password    string `yaml:"password"`
		Name        string `yaml:"name"`
		Path        string `yaml:"path"` // sqlite file
		URI         string `yaml:"uri"`  // mongo
		AutoMigrate bool   `yaml:"autoMigrate"`
	} `yaml:"database"`

	Minio struct {
		Enabled        bool   `yaml:"enabled"`
		Endpoint       string `yaml:"endpoint"`
		AccessKey      string `yaml:"accessKey"`
		SecretKey      string `yaml:"secretKey"`
		BucketName     string `yaml:"bucketName"`
		Region         string `yaml:"region"`
		UseSSL         bool   `yaml:"useSSL"`
		PresignMinutes int    `yaml:"presignMinutes"`
	} `yaml:"minio"`

	OpenAI struct {
		Enabled bool   `yaml:"enabled"`
		APIKey  string `yaml:"apiKey"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	Analysis struct {
		SampleRate      int           `yaml:"sampleRate"`
		FFmpegBin       string        `yaml:"ffmpegBin"`
		TempDir         string        `yaml:"tempDir"`
		DecodeTimeout   time.Duration `yaml:"decodeTimeout"`
		MaxSeconds      float64       `yaml:"maxSeconds"`
		SuggestionsFile string        `yaml:"suggestionsFile"`
	} `yaml:"analysis"`

	Auth struct {
		APIKeys map[string]string `yaml:"apiKeys"` // client -> key
	} `yaml:"auth"`

	RateLimit struct {
		Capacity        int     `yaml:"capacity"`
		RefillPerSecond float64 `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json | console
	} `yaml:"log"`
}

// Load baca file config.yaml
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used when no file exists.
func Default() *Config {
	var cfg Config
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" && c.Database.Password == "" {
		c.Database.Password = v
	}
	if v := os.Getenv("MONGO_URL"); v != "" && c.Database.URI == "" {
		c.Database.URI = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8001
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 25
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}

	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/analyses.db"
	}
	if c.Database.Name == "" {
		c.Database.Name = "enginesound"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.URI == "" && c.Database.Driver == "mongo" {
		c.Database.URI = "mongodb://localhost:27017"
	}

	if c.Minio.PresignMinutes <= 0 {
		c.Minio.PresignMinutes = 15
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "engine-recordings"
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}

	if c.Analysis.SampleRate <= 0 {
		c.Analysis.SampleRate = 16000
	}
	if c.Analysis.FFmpegBin == "" {
		c.Analysis.FFmpegBin = "ffmpeg"
	}
	if c.Analysis.DecodeTimeout <= 0 {
		c.Analysis.DecodeTimeout = 30 * time.Second
	}
	if c.Analysis.MaxSeconds <= 0 {
		c.Analysis.MaxSeconds = 600
	}

	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillPerSecond <= 0 {
		c.RateLimit.RefillPerSecond = 1
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite", "mongo":
	default:
		return fmt.Errorf("config: unknown database driver %q", c.Database.Driver)
	}
	if c.OpenAI.Enabled && c.OpenAI.APIKey == "" {
		return fmt.Errorf("config: openai enabled without apiKey")
	}
	if c.Minio.Enabled && c.Minio.Endpoint == "" {
		return fmt.Errorf("config: minio enabled without endpoint")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
	)
}

// MaxUploadBytes is the multipart body limit.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// LoadSuggestions builds the repair table. Entries in the optional YAML file
// override the built-in ones per category.
func LoadSuggestions(path string) (*diagnosis.SuggestionTable, error) {
	entries := diagnosis.DefaultSuggestions()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read suggestions: %w", err)
		}
		var overrides map[diagnosis.Category]diagnosis.SuggestionBundle
		if err := yaml.Unmarshal(data, &overrides); err != nil {
			return nil, fmt.Errorf("parse suggestions: %w", err)
		}
		for c, b := range overrides {
			entries[c] = b
		}
	}
	return diagnosis.NewSuggestionTable(entries)
}
