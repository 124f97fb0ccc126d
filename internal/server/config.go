// internal/server/config.go
package server

import (
	"os"
	"strconv"
	"time"

	"mcp-glucose-log/internal/classifier"
)

const (
	DefaultModel   = "anthropic/claude-3.5-sonnet"
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultRegion  = "us-east-1"
)

type Config struct {
	Transport     string
	Host          string
	Port          int
	DBPath        string
	CatalogPath   string
	ClassifyDelay time.Duration

	LLM LLMConfig

	AWSRegion          string
	RekognitionEnabled bool
	PhotoBucket        string
	PhotoBaseURL       string
}

type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func DefaultConfig() *Config {
	return &Config{
		Transport:     "http",
		Host:          "0.0.0.0",
		Port:          8011,
		DBPath:        "/data/glucose-log.db",
		ClassifyDelay: classifier.DefaultDelay,
		LLM: LLMConfig{
			Model:   DefaultModel,
			BaseURL: DefaultBaseURL,
		},
		AWSRegion: DefaultRegion,
	}
}

// ApplyEnv fills settings that are still unset from the environment.
func (c *Config) ApplyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if v := os.Getenv("OPENROUTER_MODEL"); v != "" && (c.LLM.Model == "" || c.LLM.Model == DefaultModel) {
		c.LLM.Model = v
	}
	if v := os.Getenv("OPENROUTER_BASE_URL"); v != "" && (c.LLM.BaseURL == "" || c.LLM.BaseURL == DefaultBaseURL) {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" && (c.AWSRegion == "" || c.AWSRegion == DefaultRegion) {
		c.AWSRegion = v
	}
	if v, err := strconv.ParseBool(os.Getenv("REKOGNITION_ENABLED")); err == nil && !c.RekognitionEnabled {
		c.RekognitionEnabled = v
	}
	if c.PhotoBucket == "" {
		c.PhotoBucket = os.Getenv("MEAL_PHOTO_BUCKET")
	}
	if c.PhotoBaseURL == "" {
		c.PhotoBaseURL = os.Getenv("MEAL_PHOTO_BASE_URL")
	}
	if c.CatalogPath == "" {
		c.CatalogPath = os.Getenv("FOOD_CATALOG_PATH")
	}
}
