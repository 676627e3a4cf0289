package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/kelseyhightower/envconfig"
)

// Config is read from WANWU_* environment variables.
type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:"127.0.0.1:8080"`
	RPCSocket string `envconfig:"RPC_SOCKET" default:"./wanwu.sock"`
	DBPath    string `envconfig:"DB_PATH" default:"./wanwu.db"`
	Namespace string `envconfig:"NAMESPACE" default:"wanwu_"`
	Timezone  string `envconfig:"TIMEZONE" default:"Asia/Shanghai"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	QwenAPIKey      string        `envconfig:"QWEN_API_KEY"`
	QwenBaseURL     string        `envconfig:"QWEN_BASE_URL" default:"https://dashscope.aliyuncs.com/compatible-mode/v1"`
	QwenModel       string        `envconfig:"QWEN_MODEL" default:"qwen-plus"`
	QwenVisionModel string        `envconfig:"QWEN_VISION_MODEL" default:"qwen-vl-plus"`
	QwenTimeout     time.Duration `envconfig:"QWEN_TIMEOUT" default:"30s"`

	StorageDriver    string `envconfig:"STORAGE_DRIVER" default:"local"`
	StorageDir       string `envconfig:"STORAGE_DIR" default:"./uploads"`
	StorageEndpoint  string `envconfig:"STORAGE_ENDPOINT"`
	StorageBucket    string `envconfig:"STORAGE_BUCKET"`
	StorageToken     string `envconfig:"STORAGE_TOKEN"`
	StoragePublicURL string `envconfig:"STORAGE_PUBLIC_URL"`

	RitualAutoDelay time.Duration `envconfig:"RITUAL_AUTO_DELAY" default:"1500ms"`

	location *time.Location
}

// ResolveDefaults validates driver choices and loads the time zone.
func (c *Config) ResolveDefaults() error {
	switch c.StorageDriver {
	case "local":
		if c.StoragePublicURL == "" {
			c.StoragePublicURL = "http://" + c.HTTPAddr + "/uploads"
		}
	case "http":
		if c.StorageEndpoint == "" || c.StorageBucket == "" {
			return fmt.Errorf("STORAGE_ENDPOINT and STORAGE_BUCKET are required for the http storage driver")
		}
		if c.StoragePublicURL == "" {
			c.StoragePublicURL = c.StorageEndpoint + "/" + c.StorageBucket
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s", c.StorageDriver)
	}

	if c.Namespace == "" {
		return fmt.Errorf("NAMESPACE must not be empty")
	}
	if c.RitualAutoDelay < 0 {
		return fmt.Errorf("RITUAL_AUTO_DELAY must not be negative")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location is the zone that defines a calendar day. Valid after ResolveDefaults.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Override adjusts the environment values before defaults are resolved.
type Override func(*Config)

func New(overrides ...Override) (*Config, error) {
	var cfg Config
	if err := envconfig.Process("WANWU", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
