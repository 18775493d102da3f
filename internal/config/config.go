package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bindgen/internal/normalize"
	"bindgen/internal/pattern"
	"bindgen/internal/pipeline"
)

// ErrNoInput is returned when a run has no header to parse.
var ErrNoInput = errors.New("no input headers")

type Config struct {
	Inputs    []string `yaml:"inputs"`
	Classes   []string `yaml:"classes"`
	Enums     []string `yaml:"enums"`
	Functions string   `yaml:"functions"` // full match on the qualified name
	Macros    string   `yaml:"macros"`    // search anywhere in the name

	TypeInfo       map[string]normalize.TypeInfo `yaml:"typeInfo"`
	SignalMarkers  []string                      `yaml:"signalMarkers"`
	StringClasses  []string                      `yaml:"stringClasses"`
	FlagsTemplates []string                      `yaml:"flagsTemplates"`

	Defines map[string]string `yaml:"defines"`
	Output  string            `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := normalize.DefaultOptions()
	return &Config{
		SignalMarkers:  opts.SignalMarkers,
		StringClasses:  opts.StringClasses,
		FlagsTemplates: opts.FlagsTemplates,
		Output:         "-",
	}
}

// LoadConfig reads path over the defaults, then applies environment
// overrides. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("BINDGEN_FUNCTIONS"); ok {
		c.Functions = v
	}
	if v, ok := os.LookupEnv("BINDGEN_MACROS"); ok {
		c.Macros = v
	}
	if v := os.Getenv("BINDGEN_OUTPUT"); v != "" {
		c.Output = v
	}
	c.Classes = append(c.Classes, splitList(os.Getenv("BINDGEN_CLASSES"))...)
	c.Enums = append(c.Enums, splitList(os.Getenv("BINDGEN_ENUMS"))...)
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

// Matchers compiles the function and macro patterns. The error is a
// *pattern.Error naming the first bad expression.
func (c *Config) Matchers() (functions, macros *pattern.Matcher, err error) {
	if functions, err = pattern.Compile(c.Functions); err != nil {
		return nil, nil, err
	}
	if macros, err = pattern.Compile(c.Macros); err != nil {
		return nil, nil, err
	}
	return functions, macros, nil
}

// Pipeline builds the run configuration.
func (c *Config) Pipeline() (pipeline.Config, error) {
	functions, macros, err := c.Matchers()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Classes:   c.Classes,
		Enums:     c.Enums,
		Functions: functions,
		Macros:    macros,
		Normalize: normalize.Options{
			StringClasses:  c.StringClasses,
			FlagsTemplates: c.FlagsTemplates,
			SignalMarkers:  c.SignalMarkers,
			TypeInfo:       c.TypeInfo,
		},
	}, nil
}

// Validate checks that a parse run can start.
func (c *Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInput
	}
	_, _, err := c.Matchers()
	return err
}
