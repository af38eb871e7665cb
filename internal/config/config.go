// Package config loads server settings.
//
// LOAD ORDER (later wins):
//  1. Defaults()
//  2. YAML file named by CONFIG_FILE, if set
//  3. Individual environment variables (PORT, DB_PATH, ...)
//
// Env vars win so that a container can override one value without
// shipping a new file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const minJWTSecretLength = 16

// Config is everything cmd/server needs to build a server.Server.
type Config struct {
	Port   int    `yaml:"port"`
	DBPath string `yaml:"db_path"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	CORSOrigins []string `yaml:"cors_origins"`

	// ProjectIDParam is the query key the identifier filter reads.
	ProjectIDParam string `yaml:"project_id_param"`
	// LenientTokens switches the codec to legacy modulo decoding.
	LenientTokens bool `yaml:"lenient_tokens"`

	GitHub GitHubConfig `yaml:"github"`
}

type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

// Enabled reports whether GitHub login should be mounted.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

func Defaults() Config {
	return Config{
		Port:           8080,
		DBPath:         "data/checklist.db",
		JWTTTL:         24 * time.Hour,
		LogLevel:       "info",
		LogFormat:      "text",
		CORSOrigins:    []string{"http://localhost:3000"},
		ProjectIDParam: "encryptedProjectId",
	}
}

// Load builds a Config from defaults, the optional file and the process
// environment. It does not validate; call Validate before use.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Defaults()

	if path := getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(getenv); err != nil {
		return Config{}, err
	}

	if cfg.GitHub.CallbackURL == "" {
		cfg.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v := getenv("DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := getenv("JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid JWT_TTL %q: %w", v, err)
		}
		c.JWTTTL = ttl
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitList(v)
	}
	if v := getenv("PROJECT_ID_PARAM"); v != "" {
		c.ProjectIDParam = v
	}
	if v := getenv("LENIENT_TOKENS"); v != "" {
		lenient, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid LENIENT_TOKENS %q: %w", v, err)
		}
		c.LenientTokens = lenient
	}
	if v := getenv("GITHUB_CLIENT_ID"); v != "" {
		c.GitHub.ClientID = v
	}
	if v := getenv("GITHUB_CLIENT_SECRET"); v != "" {
		c.GitHub.ClientSecret = v
	}
	if v := getenv("GITHUB_CALLBACK_URL"); v != "" {
		c.GitHub.CallbackURL = v
	}
	return nil
}

// Validate reports every problem at once so an operator can fix the whole
// config in one pass.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT secret must be at least %d characters", minJWTSecretLength))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT TTL must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.LogFormat))
	}
	if c.ProjectIDParam == "" {
		errs = append(errs, errors.New("project id param is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
