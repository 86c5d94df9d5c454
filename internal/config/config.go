package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const envPrefix = "WASTE_"

type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Hub      HubConfig      `yaml:"hub"`
	Cache    CacheConfig    `yaml:"cache"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Classify ClassifyConfig `yaml:"classify"`
	Log      LogConfig      `yaml:"log"`
}

type ModelConfig struct {
	Repo       string `yaml:"repo"`
	Revision   string `yaml:"revision"`
	File       string `yaml:"file"`
	InputName  string `yaml:"input_name"`
	OutputName string `yaml:"output_name"`
	Offline    bool   `yaml:"offline"`
}

type HubConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Token     string `yaml:"token"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type CacheConfig struct {
	Dir           string `yaml:"dir"`
	LockTimeoutMs int    `yaml:"lock_timeout_ms"`
}

type RuntimeConfig struct {
	LibraryPath string `yaml:"library_path"`
}

type ClassifyConfig struct {
	TopK int `yaml:"top_k"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (h HubConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutMs) * time.Millisecond
}

func (c CacheConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// Default returns the configuration used when no file is given. The log level
// is "error" so that only failures reach stderr.
func Default() *Config {
	return &Config{
		// Model.File is an ONNX export; config.example.yaml shows how to produce one.
		Model: ModelConfig{
			Repo:       "prithivMLmods/Augmented-Waste-Classifier-SigLIP2",
			Revision:   "main",
			File:       "onnx/model.onnx",
			InputName:  "pixel_values",
			OutputName: "logits",
		},
		Hub: HubConfig{
			Endpoint:  "https://huggingface.co",
			TimeoutMs: 300000,
		},
		Cache: CacheConfig{
			Dir:           "./hf_cache",
			LockTimeoutMs: 600000,
		},
		Classify: ClassifyConfig{TopK: 3},
		Log: LogConfig{
			Level:  "error",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. An empty path skips the file; a missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Model.Repo, envPrefix+"MODEL_REPO")
	setString(&c.Model.Revision, envPrefix+"MODEL_REVISION")
	setString(&c.Model.File, envPrefix+"MODEL_FILE")
	setString(&c.Hub.Endpoint, envPrefix+"HUB_ENDPOINT")
	setString(&c.Hub.Token, "HF_TOKEN")
	setString(&c.Hub.Token, envPrefix+"HUB_TOKEN")
	setString(&c.Cache.Dir, envPrefix+"CACHE_DIR")
	setString(&c.Runtime.LibraryPath, "ONNXRUNTIME_LIB")
	setString(&c.Runtime.LibraryPath, envPrefix+"RUNTIME_LIBRARY_PATH")
	setString(&c.Log.Level, envPrefix+"LOG_LEVEL")
	setString(&c.Log.Format, envPrefix+"LOG_FORMAT")

	if err := setBool(&c.Model.Offline, envPrefix+"MODEL_OFFLINE"); err != nil {
		return err
	}
	if err := setInt(&c.Classify.TopK, envPrefix+"CLASSIFY_TOP_K"); err != nil {
		return err
	}
	return setInt(&c.Hub.TimeoutMs, envPrefix+"HUB_TIMEOUT_MS")
}

func (c *Config) Validate() error {
	if c.Model.Repo == "" {
		return errors.New("model.repo must not be empty")
	}
	if c.Model.File == "" {
		return errors.New("model.file must not be empty")
	}
	if c.Cache.Dir == "" {
		return errors.New("cache.dir must not be empty")
	}
	if c.Classify.TopK <= 0 {
		return fmt.Errorf("classify.top_k must be positive, got %d", c.Classify.TopK)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
