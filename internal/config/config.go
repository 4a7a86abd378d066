// Package config loads service settings from an optional YAML file, a .env
// file and the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"intents/internal/runner"
	"intents/internal/toolkind"
	"intents/internal/toolrouter"
)

// DefaultFile is looked up when no --config flag is given.
const DefaultFile = "intents.yaml"

type Config struct {
	Server ServerConfig       `yaml:"server"`
	Store  StoreConfig        `yaml:"store"`
	Oracle OracleConfig       `yaml:"oracle"`
	Runner RunnerConfig       `yaml:"runner"`
	Redis  RedisConfig        `yaml:"redis"`
	NATS   NATSConfig         `yaml:"nats"`
	Tools  []toolrouter.Entry `yaml:"tool_routers"`
	Log    LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	Dir string `yaml:"dir"`
}

type OracleConfig struct {
	Binary      string        `yaml:"binary"`
	Args        []string      `yaml:"args"`
	Model       string        `yaml:"model"`
	HTTPURL     string        `yaml:"http_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

type RunnerConfig struct {
	Mode    string               `yaml:"mode"`
	Python  string               `yaml:"python"`
	Timeout time.Duration        `yaml:"timeout"`
	Docker  runner.DockerOptions `yaml:"docker"`
}

// RedisConfig enables metrics when Addr is set.
type RedisConfig struct {
	Addr string        `yaml:"addr"`
	TTL  time.Duration `yaml:"ttl"`
}

// NATSConfig enables lifecycle events when URL is set.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	tools := make([]toolrouter.Entry, len(toolrouter.DefaultEntries))
	copy(tools, toolrouter.DefaultEntries)
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000, ShutdownTimeout: 10 * time.Second},
		Store:  StoreConfig{Dir: "tools"},
		Oracle: OracleConfig{
			Binary:      "ollama",
			Model:       "deepseek-r1:latest",
			HTTPURL:     "http://localhost:11434/api/generate",
			HTTPTimeout: 120 * time.Second,
		},
		Runner: RunnerConfig{Mode: runner.ModePython, Python: runner.DefaultPython},
		Redis:  RedisConfig{TTL: 24 * time.Hour},
		NATS:   NATSConfig{Subject: "intents.events"},
		Tools:  tools,
		Log:    LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads path on top of Default. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Runner.Mode = strings.ToLower(strings.TrimSpace(cfg.Runner.Mode))
	return cfg, nil
}

// LoadEnvFile loads .env from the working directory or up to three parents.
// It returns the file it loaded, or "" when none was found.
func LoadEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i <= 3; i++ {
		envPath := filepath.Join(dir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			return envPath, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func getenvTrim(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := getenvTrim(k); v != "" {
			return v
		}
	}
	return ""
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() error {
	if v := getenvTrim("INTENTS_DIR"); v != "" {
		c.Store.Dir = v
	}
	if v := getenvTrim("OLLAMA_BIN"); v != "" {
		c.Oracle.Binary = v
	}
	if v := firstEnv("OLLAMA_MODEL", "LLM_MODEL"); v != "" {
		c.Oracle.Model = v
	}
	if v := firstEnv("OLLAMA_URL", "OLLAMA_BASE_URL"); v != "" {
		c.Oracle.HTTPURL = v
	}
	if v := getenvTrim("REDIS_URL"); v != "" {
		c.Redis.Addr = NormalizeRedisAddr(v)
	}
	if v := getenvTrim("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := firstEnv("RUNNER_MODE", "EXECUTION_METHOD"); v != "" {
		c.Runner.Mode = strings.ToLower(v)
	}
	if v := getenvTrim("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v := getenvTrim("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// NormalizeRedisAddr turns redis://host[:port]/ into host:port.
func NormalizeRedisAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "localhost:6379"
	}
	addr = strings.TrimPrefix(addr, "redis://")
	addr = strings.TrimSuffix(addr, "/")
	if !strings.Contains(addr, ":") {
		addr += ":6379"
	}
	return addr
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	if c.Store.Dir == "" {
		return errors.New("store.dir must be set")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch strings.ToLower(strings.TrimSpace(c.Runner.Mode)) {
	case "", runner.ModePython, runner.ModeDocker, runner.ModeSyntax:
	default:
		return fmt.Errorf("runner.mode %q must be one of python, docker, syntax", c.Runner.Mode)
	}
	for _, t := range c.Tools {
		if _, err := toolkind.Parse(t.Type); err != nil {
			return fmt.Errorf("tool_routers: %w", err)
		}
		if t.Count < 0 {
			return fmt.Errorf("tool_routers: %s has negative count", t.Type)
		}
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// RunnerOptions converts the runner section for runner.New.
func (c *Config) RunnerOptions() runner.Options {
	return runner.Options{
		Mode:    c.Runner.Mode,
		Python:  c.Runner.Python,
		Timeout: c.Runner.Timeout,
		Docker:  c.Runner.Docker,
	}
}
