// Package config provides configuration loading for kortexd.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024 // 1MB

// Load loads configuration from a YAML file, then overrides with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables prefixed with KORTEX_ (KORTEX_SERVER_PORT, ...)
//  2. YAML config file (optional; empty path skips the file entirely)
//  3. Hardcoded defaults
//
// Environment variables use underscore separators mapped onto the YAML
// structure. The first segment selects the section:
//
//	KORTEX_SERVER_PORT        -> server.port
//	KORTEX_GITHUB_TOKEN       -> github.token
//	KORTEX_AI_BASE_URL        -> ai.base_url
//	KORTEX_LOGGING_LEVEL      -> logging.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider("KORTEX_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// readConfigFile reads the config file if it exists. A missing file is not
// an error; oversized files are rejected.
func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return content, nil
}

// envTransform maps KORTEX_SECTION_FIELD_NAME to section.field_name.
// The first underscore separates the section; the remainder keeps its
// underscores so compound field names round-trip (AI_BASE_URL -> ai.base_url).
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "KORTEX_"))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + parts[1]
}
