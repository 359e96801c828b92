package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STEPWISE"

// ErrConfigNotFound is returned when an explicitly requested file is missing.
var ErrConfigNotFound = errors.New("config file not found")

// Loader reads configuration from defaults, a config file, .env files and
// the environment, in that order of precedence.
type Loader struct {
	// DotenvPaths are loaded with godotenv when they exist. Variables
	// already set in the environment win.
	DotenvPaths []string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Search finds the config file when none is given explicitly.
	Search func() (string, bool)
}

// NewLoader creates a loader that reads ./.env and searches the XDG config
// directories.
func NewLoader() *Loader {
	return &Loader{
		DotenvPaths: []string{".env"},
		Getenv:      os.Getenv,
		Search:      SearchConfigFile,
	}
}

// Load builds the configuration. path may be empty to search for a file.
// It returns the file that was used, if any. The result is not validated so
// that command line flags can be applied first.
func (l *Loader) Load(path string) (*Config, string, error) {
	config := DefaultConfig()

	if err := l.loadDotenv(); err != nil {
		return nil, "", err
	}

	if path == "" && l.Search != nil {
		if found, ok := l.Search(); ok {
			path = found
		}
	} else if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, "", fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, "", err
		}
	}

	if path != "" {
		if err := LoadFile(path, config); err != nil {
			return nil, "", err
		}
	}

	if err := l.applyEnvironmentOverrides(config); err != nil {
		return nil, "", err
	}

	return config, path, nil
}

func (l *Loader) loadDotenv() error {
	for _, p := range l.DotenvPaths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadFile decodes the file at path over config. The format follows the
// extension: .json is JSON, anything else YAML. Unknown keys are rejected.
func LoadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(config); err != nil {
			return fmt.Errorf("%w: failed to parse JSON %s: %v", ErrInvalidConfig, path, err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: failed to parse YAML %s: %v", ErrInvalidConfig, path, err)
		}
	}
	return nil
}

// applyEnvironmentOverrides applies STEPWISE_* variables, and the bare
// API_BASE, API_KEY and MODEL variables when the prefixed ones are unset.
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	getenv := l.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	lookup := func(name string, fallbacks ...string) string {
		if v := getenv(EnvPrefix + "_" + name); v != "" {
			return v
		}
		for _, f := range fallbacks {
			if v := getenv(f); v != "" {
				return v
			}
		}
		return ""
	}

	if v := lookup("BASE_URL", "API_BASE"); v != "" {
		config.API.BaseURL = v
	}
	if v := lookup("API_KEY", "API_KEY"); v != "" {
		config.API.APIKey = v
	}
	if v := lookup("MODEL", "MODEL"); v != "" {
		config.API.Model = v
	}
	if v := lookup("LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
	if v := lookup("SCRIPT_INTERPRETER"); v != "" {
		config.Tools.ScriptInterpreter = v
	}
	if v := lookup("TOOLS"); v != "" {
		config.Tools.Enabled = splitList(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_STEPS", &config.Planner.MaxSteps},
		{"MAX_TOOL_TURNS", &config.Executor.MaxToolTurns},
		{"TIMEOUT_SECONDS", &config.API.TimeoutSeconds},
		{"RETRY_COUNT", &config.API.RetryCount},
	}
	for _, i := range ints {
		v := lookup(i.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s_%s must be an integer, got %q", ErrInvalidConfig, EnvPrefix, i.name, v)
		}
		*i.dst = n
	}

	if v := lookup("CONTINUE_ON_TURN_LIMIT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s_CONTINUE_ON_TURN_LIMIT must be a boolean, got %q", ErrInvalidConfig, EnvPrefix, v)
		}
		config.Run.ContinueOnTurnLimit = b
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Marshal renders config as YAML, or JSON when format is "json".
func Marshal(config Config, format string) ([]byte, error) {
	if format == "json" {
		return json.MarshalIndent(config, "", "  ")
	}
	return yaml.Marshal(config)
}
