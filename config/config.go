package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string `yaml:"app_env"`
	RESTAddr string `yaml:"rest_addr"`
	GRPCAddr string `yaml:"grpc_addr"`
	LogLevel string `yaml:"log_level"`

	OnnxRuntimeLib      string   `yaml:"onnxruntime_lib"`
	EmbeddingModelPath  string   `yaml:"embedding_model_path"`
	EmbeddingImageSize  int      `yaml:"embedding_image_size"`
	ClassifierPath      string   `yaml:"classifier_path"`
	ClassNames          []string `yaml:"class_names"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`

	UploadDir      string        `yaml:"upload_dir"`
	MaxUploadBytes int           `yaml:"max_upload_bytes"`
	StaticDir      string        `yaml:"static_dir"`
	SessionTTL     time.Duration `yaml:"session_ttl"`

	GeminiAPIKey          string        `yaml:"gemini_api_key"`
	GeminiBaseURL         string        `yaml:"gemini_base_url"`
	GeminiModel           string        `yaml:"gemini_model"`
	GeminiTimeout         time.Duration `yaml:"gemini_timeout"`
	GeminiMaxOutputTokens int           `yaml:"gemini_max_output_tokens"`

	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppEnv:   "development",
		RESTAddr: ":8088",
		GRPCAddr: ":8008",
		LogLevel: "info",

		EmbeddingModelPath:  "models/derm_foundation.onnx",
		EmbeddingImageSize:  448,
		ClassifierPath:      "models/derm_classifier_head.json",
		ClassNames:          []string{"Acne", "Eczema", "Vitiligo"},
		ConfidenceThreshold: 0.70,

		UploadDir:      "uploads",
		MaxUploadBytes: 16 << 20,
		StaticDir:      "website",
		SessionTTL:     time.Hour,

		GeminiBaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		GeminiModel:           "gemini-1.5-flash",
		GeminiTimeout:         30 * time.Second,
		GeminiMaxOutputTokens: 500,

		BreakerFailures: 3,
		BreakerCooldown: time.Minute,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (config.yaml when unset), a .env file and the environment, in
// increasing order of precedence. Missing files are skipped.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	setString(&c.AppEnv, "APP_ENV")
	setString(&c.RESTAddr, "REST_ADDR")
	if v, ok := os.LookupEnv("GRPC_ADDR"); ok {
		c.GRPCAddr = v
	}
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.OnnxRuntimeLib, "ONNXRUNTIME_LIB")
	setString(&c.EmbeddingModelPath, "EMBEDDING_MODEL_PATH")
	setString(&c.ClassifierPath, "CLASSIFIER_PATH")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.StaticDir, "STATIC_DIR")
	setString(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&c.GeminiBaseURL, "GEMINI_BASE_URL")
	setString(&c.GeminiModel, "GEMINI_MODEL")

	if v := os.Getenv("CLASS_NAMES"); v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.ClassNames = names
	}

	return errors.Join(
		setInt(&c.EmbeddingImageSize, "EMBEDDING_IMAGE_SIZE"),
		setInt(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setInt(&c.GeminiMaxOutputTokens, "GEMINI_MAX_OUTPUT_TOKENS"),
		setInt(&c.BreakerFailures, "BREAKER_FAILURES"),
		setFloat(&c.ConfidenceThreshold, "CONFIDENCE_THRESHOLD"),
		setDuration(&c.SessionTTL, "SESSION_TTL"),
		setDuration(&c.GeminiTimeout, "GEMINI_TIMEOUT"),
		setDuration(&c.BreakerCooldown, "BREAKER_COOLDOWN"),
	)
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidence threshold must be in (0,1], got %v", c.ConfidenceThreshold))
	}
	if c.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes))
	}
	if c.EmbeddingImageSize <= 0 {
		errs = append(errs, fmt.Errorf("embedding image size must be positive, got %d", c.EmbeddingImageSize))
	}
	if c.RESTAddr == "" {
		errs = append(errs, errors.New("rest address is required"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = f
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", key, v)
	}
	*dst = d
	return nil
}
