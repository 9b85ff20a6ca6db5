package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".restdoc/config.yaml"

const envPrefix = "RESTDOC_"

type LLMConfig struct {
	Provider    string  `yaml:"provider" env:"PROVIDER"`
	APIKey      string  `yaml:"api_key" env:"API_KEY"`
	BaseURL     string  `yaml:"base_url" env:"BASE_URL"`
	Model       string  `yaml:"model" env:"MODEL"`
	MaxTokens   int     `yaml:"max_tokens" env:"MAX_TOKENS"`
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
}

type OutputConfig struct {
	Dir     string   `yaml:"dir" env:"DIR"`
	Formats []string `yaml:"formats" env:"FORMATS" envSeparator:","`
}

// DocConfig carries documentation metadata rendered into every output.
type DocConfig struct {
	Title        string `yaml:"title" env:"TITLE"`
	Version      string `yaml:"version" env:"VERSION"`
	CSSPath      string `yaml:"css_path" env:"CSS_PATH"`
	TemplatePath string `yaml:"template_path" env:"TEMPLATE_PATH"`
}

// EngineConfig tunes type resolution.
type EngineConfig struct {
	Exclude           []string `yaml:"exclude" env:"EXCLUDE" envSeparator:","`
	MapTypes          []string `yaml:"map_types" env:"MAP_TYPES" envSeparator:","`
	CollectionTypes   []string `yaml:"collection_types" env:"COLLECTION_TYPES" envSeparator:","`
	RequestBodyFilter string   `yaml:"request_body_filter" env:"REQUEST_BODY_FILTER"`
}

type ExampleConfig struct {
	Generator string `yaml:"generator" env:"GENERATOR"`
	Format    string `yaml:"format" env:"FORMAT"`
}

type SanitizeConfig struct {
	Fields      []string `yaml:"fields" env:"FIELDS" envSeparator:","`
	Replacement string   `yaml:"replacement" env:"REPLACEMENT"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"HOST"`
	Port int    `yaml:"port" env:"PORT"`
}

type StoreConfig struct {
	Path string `yaml:"path" env:"PATH"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
}

type Config struct {
	Output   OutputConfig   `yaml:"output" envPrefix:"OUTPUT_"`
	Doc      DocConfig      `yaml:"doc" envPrefix:"DOC_"`
	Engine   EngineConfig   `yaml:"engine" envPrefix:"ENGINE_"`
	Example  ExampleConfig  `yaml:"example" envPrefix:"EXAMPLE_"`
	Sanitize SanitizeConfig `yaml:"sanitize" envPrefix:"SANITIZE_"`
	LLM      LLMConfig      `yaml:"llm" envPrefix:"LLM_"`
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Store    StoreConfig    `yaml:"store" envPrefix:"STORE_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
}

// DefaultPath returns ~/.restdoc/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// Load loads YAML config, then applies RESTDOC_* env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}

// Write saves cfg as YAML, creating parent directories.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 2048
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if len(c.Output.Formats) == 0 {
		c.Output.Formats = []string{"markdown", "openapi"}
	}
	if c.Doc.Title == "" {
		c.Doc.Title = "REST API"
	}
	if c.Doc.Version == "" {
		c.Doc.Version = "1.0.0"
	}
	if c.Engine.RequestBodyFilter == "" {
		c.Engine.RequestBodyFilter = "annotation"
	}
	if c.Example.Generator == "" {
		c.Example.Generator = "structural"
	}
	if c.Example.Format == "" {
		c.Example.Format = "json"
	}
	if len(c.Sanitize.Fields) == 0 {
		c.Sanitize.Fields = []string{"password", "secret", "token", "api_key", "access_token", "refresh_token", "credential"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Store.Path == "" {
		c.Store.Path = defaultStorePath()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "restdoc.db"
	}
	return filepath.Join(home, ".restdoc", "restdoc.db")
}

var (
	validFormats        = map[string]struct{}{"markdown": {}, "openapi": {}, "html": {}, "json": {}}
	validExampleFormats = map[string]struct{}{"json": {}, "yaml": {}}
	validGenerators     = map[string]struct{}{"structural": {}, "llm": {}}
	validBodyFilters    = map[string]struct{}{"annotation": {}, "non-primitive": {}}
)

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output.dir cannot be empty")
	}
	for _, f := range c.Output.Formats {
		if _, ok := validFormats[f]; !ok {
			return fmt.Errorf("output.formats: unknown format %q", f)
		}
	}
	if _, ok := validExampleFormats[c.Example.Format]; !ok {
		return fmt.Errorf("example.format: unknown format %q", c.Example.Format)
	}
	if _, ok := validGenerators[c.Example.Generator]; !ok {
		return fmt.Errorf("example.generator: unknown generator %q", c.Example.Generator)
	}
	if _, ok := validBodyFilters[c.Engine.RequestBodyFilter]; !ok {
		return fmt.Errorf("engine.request_body_filter: unknown filter %q", c.Engine.RequestBodyFilter)
	}
	if err := ensureWritableDir(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir not writable: %w", err)
	}
	return nil
}

// ValidateLLM enforces the llm example generator's requirements.
func (c *Config) ValidateLLM() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Example.Generator != "llm" {
		return nil
	}
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key cannot be empty")
	}
	if strings.TrimSpace(c.LLM.BaseURL) == "" {
		return errors.New("llm.base_url cannot be empty")
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writable-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func applyEnvOverrides(c *Config) error {
	return env.ParseWithOptions(c, env.Options{Prefix: envPrefix})
}
