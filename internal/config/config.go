package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         string        `yaml:"port"`
	APIBaseURL   string        `yaml:"api_base_url"`
	AssistantURL string        `yaml:"assistant_url"`
	DBDSN        string        `yaml:"db_dsn"`
	MediaDir     string        `yaml:"media_dir"`
	LogFile      string        `yaml:"log_file"`
	LogLevel     string        `yaml:"log_level"`
	LogColor     bool          `yaml:"log_color"`
	MaxImages    int           `yaml:"max_images"`
	TypingDelay  time.Duration `yaml:"typing_delay"`
	SessionIdle  time.Duration `yaml:"session_idle"`
	SecureCookie bool          `yaml:"secure_cookie"`
	UploadMB     int           `yaml:"upload_mb"`

	Backend BackendConfig `yaml:"backend"`
}

// BackendConfig is read by the mockapi command only.
type BackendConfig struct {
	Port      string `yaml:"port"`
	DBDSN     string `yaml:"db_dsn"`
	JWTSecret string `yaml:"jwt_secret"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		APIBaseURL:  "http://localhost:8090",
		DBDSN:       "dreamhome.db",
		MediaDir:    "./web/media",
		LogFile:     "./dreamhome.log",
		LogLevel:    "info",
		LogColor:    true,
		MaxImages:   10,
		TypingDelay: 2 * time.Second,
		SessionIdle: 2 * time.Hour,
		UploadMB:    5,
		Backend: BackendConfig{
			Port:      "8090",
			DBDSN:     "dreamhome-api.db",
			JWTSecret: "dev-only-change-me",
		},
	}
}

// Load layers defaults, then the YAML file at path (when it exists), then
// environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.AssistantURL == "" {
		cfg.AssistantURL = cfg.APIBaseURL
	}
	log.Printf("[config] PORT=%s API_BASE_URL=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s",
		cfg.Port, cfg.APIBaseURL, cfg.DBDSN, cfg.MediaDir, cfg.LogFile)
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("API_BASE_URL", &cfg.APIBaseURL)
	str("ASSISTANT_URL", &cfg.AssistantURL)
	str("DB_DSN", &cfg.DBDSN)
	str("MEDIA_DIR", &cfg.MediaDir)
	str("LOG_FILE", &cfg.LogFile)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("BACKEND_PORT", &cfg.Backend.Port)
	str("BACKEND_DB_DSN", &cfg.Backend.DBDSN)
	str("JWT_SECRET", &cfg.Backend.JWTSecret)

	for key, dst := range map[string]*int{"MAX_IMAGES": &cfg.MaxImages, "UPLOAD_MB": &cfg.UploadMB} {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return fmt.Errorf("%s: want a positive integer, got %q", key, v)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*time.Duration{"TYPING_DELAY": &cfg.TypingDelay, "SESSION_IDLE": &cfg.SessionIdle} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*bool{"LOG_COLOR": &cfg.LogColor, "SECURE_COOKIE": &cfg.SecureCookie} {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// MaxFileBytes caps a single uploaded image.
func (c Config) MaxFileBytes() int64 { return int64(c.UploadMB) << 20 }

// BodyLimit fits a full image set plus the form fields.
func (c Config) BodyLimit() int {
	return c.MaxImages*c.UploadMB<<20 + 1<<20
}
