package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Secret is a string that redacts itself in logs and serialized output.
// Use Value() to access the underlying secret.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value. Use sparingly.
func (s Secret) Value() string {
	return string(s)
}

// IsSet returns true if the secret has a non-empty value.
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON implements json.Marshaler. Always returns redacted value.
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("[REDACTED]")
}

// MarshalText implements encoding.TextMarshaler. Always returns redacted value.
func (s Secret) MarshalText() ([]byte, error) {
	if s == "" {
		return []byte(""), nil
	}
	return []byte("[REDACTED]"), nil
}

// Config is the root configuration for kortexd.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	GitHub      GitHubConfig      `koanf:"github"`
	AI          AIConfig          `koanf:"ai"`
	Embeddings  EmbeddingsConfig  `koanf:"embeddings"`
	VectorStore VectorStoreConfig `koanf:"vectorstore"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `koanf:"level"`
	// Format is "json" or "console".
	Format string `koanf:"format"`
}

// GitHubConfig holds GitHub API settings.
type GitHubConfig struct {
	// Token is the server-wide fallback personal access token.
	// Requests may carry their own bearer token which takes precedence.
	Token Secret `koanf:"token"`
	// Timeout applies per upstream call.
	Timeout time.Duration `koanf:"timeout"`
	// SearchWindow and SearchLimit bound the search-API fixed window.
	SearchWindow time.Duration `koanf:"search_window"`
	SearchLimit  int           `koanf:"search_limit"`
	// PlaceholderTTL bounds how long a synthesized placeholder snapshot
	// is served before the next access is allowed to refetch.
	PlaceholderTTL time.Duration `koanf:"placeholder_ttl"`
}

// AIConfig holds generation backend settings.
// The backend speaks the OpenAI chat completion protocol; BaseURL may point
// at any compatible server. An empty APIKey leaves generation unconfigured
// and the engine degrades to templated answers.
type AIConfig struct {
	BaseURL   string  `koanf:"base_url"`
	Model     string  `koanf:"model"`
	APIKey    Secret  `koanf:"api_key"`
	MaxChars  int     `koanf:"max_chars"`
	RateLimit float64 `koanf:"rate_limit"`
	Burst     int     `koanf:"burst"`
}

// EmbeddingsConfig holds embedding provider settings.
// Works against OpenAI or any OpenAI-compatible TEI server.
type EmbeddingsConfig struct {
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
}

// VectorStoreConfig holds chromem-go settings.
type VectorStoreConfig struct {
	// Path is the directory for persistent storage. Empty means in-memory.
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.GitHub.Timeout == 0 {
		c.GitHub.Timeout = 10 * time.Second
	}
	if c.GitHub.SearchWindow == 0 {
		c.GitHub.SearchWindow = time.Minute
	}
	if c.GitHub.SearchLimit == 0 {
		c.GitHub.SearchLimit = 30
	}
	if c.GitHub.PlaceholderTTL == 0 {
		c.GitHub.PlaceholderTTL = 5 * time.Minute
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.MaxChars == 0 {
		c.AI.MaxChars = 2000
	}
	if c.AI.RateLimit == 0 {
		c.AI.RateLimit = 50.0 / 60.0
	}
	if c.AI.Burst == 0 {
		c.AI.Burst = 5
	}
	if c.Embeddings.BaseURL == "" {
		c.Embeddings.BaseURL = "https://api.openai.com/v1"
	}
	if c.Embeddings.Model == "" {
		c.Embeddings.Model = "text-embedding-3-small"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	if c.GitHub.SearchLimit < 1 {
		return fmt.Errorf("search limit must be positive, got %d", c.GitHub.SearchLimit)
	}
	if c.GitHub.SearchWindow <= 0 {
		return fmt.Errorf("search window must be positive, got %s", c.GitHub.SearchWindow)
	}
	return nil
}
