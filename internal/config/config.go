// Package config loads condmerge settings from YAML files or Redis.
package config

import (
	"fmt"
	"os"

	"github.com/hkloudou/condmerge"
	"github.com/hkloudou/condmerge/internal/predicate"
	"github.com/hkloudou/condmerge/internal/storage"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Config is the full condmerge setting
type Config struct {
	Name       string           `yaml:"name" json:"name"`
	Limits     LimitsConfig     `yaml:"limits" json:"limits"`
	Predicate  PredicateConfig  `yaml:"predicate" json:"predicate"`
	Validation ValidationConfig `yaml:"validation" json:"validation"`
	Journal    JournalConfig    `yaml:"journal" json:"journal"`
	Store      StoreConfig      `yaml:"store" json:"store"`
}

type LimitsConfig struct {
	// MaxRecordBytes caps the merged record; negative disables the check
	MaxRecordBytes int64 `yaml:"max_record_bytes" json:"max_record_bytes"`
}

type PredicateConfig struct {
	Dialect string `yaml:"dialect" json:"dialect"` // "rql" | "expr" | "cel"
}

type ValidationConfig struct {
	Rules []condmerge.ValidationRule `yaml:"rules" json:"rules"`
}

// JournalConfig selects the event journal backend
type JournalConfig struct {
	Storage   string `yaml:"storage" json:"storage"` // "memory" | "oss"
	Prefix    string `yaml:"prefix" json:"prefix"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Internal  bool   `yaml:"internal" json:"internal"`
	AESKey    string `yaml:"aes_key" json:"aes_key"`
}

type StoreConfig struct {
	RedisURL string `yaml:"redis_url" json:"redis_url"`
	Prefix   string `yaml:"prefix" json:"prefix"`
}

// Default returns a configuration that needs no external services
func Default() *Config {
	return &Config{
		Name:      "condmerge",
		Limits:    LimitsConfig{MaxRecordBytes: condmerge.DefaultMaxRecordBytes},
		Predicate: PredicateConfig{Dialect: string(predicate.DialectRQL)},
		Journal:   JournalConfig{Storage: "memory", Prefix: "condmerge"},
		Store:     StoreConfig{Prefix: "condmerge"},
	}
}

// LoadFile reads a YAML file over Default()
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default()
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if _, err := cfg.PredicateEngine(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// CreateStorage creates the journal storage
func (cfg *Config) CreateStorage() (storage.Storage, error) {
	switch cfg.Journal.Storage {
	case "memory", "":
		return storage.NewMemoryStorage(cfg.Name), nil

	case "oss":
		s, err := storage.NewOSSStorage(storage.OSSConfig{
			Endpoint:  cfg.Journal.Endpoint,
			Bucket:    cfg.Journal.Bucket,
			AccessKey: cfg.Journal.AccessKey,
			SecretKey: cfg.Journal.SecretKey,
			Internal:  cfg.Journal.Internal,
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Journal.Storage)
	}
}

// PredicateEngine builds the engine for the configured dialect
func (cfg *Config) PredicateEngine(opts ...predicate.Option) (condmerge.PredicateEngine, error) {
	return predicate.New(predicate.Dialect(cfg.Predicate.Dialect), opts...)
}

// Validator compiles the validation rules, nil when there are none
func (cfg *Config) Validator() (condmerge.SchemaValidator, error) {
	if len(cfg.Validation.Rules) == 0 {
		return nil, nil
	}
	return condmerge.NewRulesValidator(cfg.Validation.Rules)
}

// RedisClient connects to the configured store, nil when none is set
func (cfg *Config) RedisClient() (*redis.Client, error) {
	if cfg.Store.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.Store.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return redis.NewClient(opt), nil
}

// MergerOptions translates the config into Merger options
func (cfg *Config) MergerOptions() ([]func(*condmerge.Option), error) {
	engine, err := cfg.PredicateEngine()
	if err != nil {
		return nil, err
	}
	opts := []func(*condmerge.Option){
		condmerge.WithPredicateEngine(engine),
		condmerge.WithMaxRecordBytes(cfg.Limits.MaxRecordBytes),
	}
	validator, err := cfg.Validator()
	if err != nil {
		return nil, err
	}
	if validator != nil {
		opts = append(opts, condmerge.WithSchemaValidator(validator))
	}
	return opts, nil
}
