package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/richard-senior/podds/pkg/podds"
)

const DefaultPath = "podds.yaml"

// Config is the application configuration shared by the CLI and the MCP server
type Config struct {
	Log    LogConfig              `yaml:"log"`
	Store  StoreConfig            `yaml:"store"`
	Models ModelsConfig           `yaml:"models"`
	Batch  BatchConfig            `yaml:"batch"`
	Engine podds.SimulationConfig `yaml:"engine"`
}

type LogConfig struct {
	Level        string `yaml:"level" default:"info" validate:"oneof=debug info inform highlight warn error fatal"`
	Output       string `yaml:"output" default:"c" validate:"oneof=c f b"`
	ShowDateTime bool   `yaml:"showDateTime"`
}

type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" default:"podds.db" validate:"required"`
}

type ModelsConfig struct {
	Dir string `yaml:"dir"` // empty disables the tree models
}

type BatchConfig struct {
	Workers int `yaml:"workers" default:"4" validate:"gte=1,lte=64"`
}

var validate = validator.New()

// Load builds the configuration from defaults, the YAML file at path (missing
// is fine when path is the default), .env and PODDS_* environment variables.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("PODDS_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{Engine: podds.DefaultConfig()}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PODDS_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("PODDS_DB_PATH"); v != "" {
		cfg.Store.Path = v
		cfg.Store.Enabled = true
	}
	if v := os.Getenv("PODDS_MODELS_DIR"); v != "" {
		cfg.Models.Dir = v
	}
	if v := os.Getenv("PODDS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PODDS_WORKERS: %w", err)
		}
		cfg.Batch.Workers = n
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c.Log); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if err := validate.Struct(c.Store); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if err := validate.Struct(c.Batch); err != nil {
		return fmt.Errorf("batch config: %w", err)
	}
	return podds.ValidateConfig(c.Engine)
}
