// Package config loads runtime configuration from the environment (and an
// optional .env file via godotenv), and defines the YAML workflow template
// schema investigations can be launched from.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process-wide runtime configuration.
type Config struct {
	// AnthropicAPIKey authenticates the decision policy's LLM backend.
	// Empty forces demo_mode / heuristic-only operation.
	AnthropicAPIKey string
	// AnthropicModel is the Claude model identifier the decision policy
	// requests.
	AnthropicModel string
	// HTTPAddr is the address the HTTP surface (internal/httpapi) listens on.
	HTTPAddr string
	// DemoMode forces the heuristic policy and fixture tool set.
	DemoMode bool
	// MaxTurns is the agent loop's default turn budget.
	MaxTurns int
	// ToolTimeout bounds each individual tool call.
	ToolTimeout time.Duration
	// PersistDir is the directory saved sessions are written under.
	PersistDir string
	// BreakerThreshold is the decision policy's per-tool consecutive
	// failure threshold.
	BreakerThreshold int
}

// Load reads configuration from the process environment, first loading a
// .env file if one is present in the working directory (a missing .env is
// not an error — this mirrors godotenv's typical development-convenience
// usage rather than a hard dependency).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Config{
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getenvDefault("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		HTTPAddr:         getenvDefault("INVESTIGATOR_HTTP_ADDR", ":8080"),
		DemoMode:         getenvBool("INVESTIGATOR_DEMO_MODE", true),
		MaxTurns:         getenvInt("INVESTIGATOR_MAX_TURNS", 15),
		ToolTimeout:      getenvDuration("INVESTIGATOR_TOOL_TIMEOUT", 30*time.Second),
		PersistDir:       getenvDefault("INVESTIGATOR_PERSIST_DIR", "./investigations"),
		BreakerThreshold: getenvInt("INVESTIGATOR_BREAKER_THRESHOLD", 3),
	}

	if !cfg.DemoMode && cfg.AnthropicAPIKey == "" {
		return Config{}, fmt.Errorf("config: ANTHROPIC_API_KEY is required when INVESTIGATOR_DEMO_MODE=false")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
