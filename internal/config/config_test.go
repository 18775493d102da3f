package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bindgen/internal/pattern"
)

const sample = `
inputs: [include/calc.hpp]
classes: [Adder, Module::Derived1]
enums: [Numeral]
functions: "mycalc_.*"
macros: "CONSTANT_.*"
typeInfo:
  PrivateConstructor: { isDefaultConstructible: false }
flagsTemplates: [QFlags, Flags]
defines:
  CALC_API: ""
output: out.json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindgen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("File over defaults", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, sample))
		require.NoError(t, err)

		assert.Equal(t, []string{"include/calc.hpp"}, cfg.Inputs)
		assert.Equal(t, []string{"Adder", "Module::Derived1"}, cfg.Classes)
		assert.Equal(t, "mycalc_.*", cfg.Functions)
		assert.Equal(t, "out.json", cfg.Output)
		assert.Equal(t, []string{"QFlags", "Flags"}, cfg.FlagsTemplates)
		assert.Equal(t, []string{"signals", "Q_SIGNALS"}, cfg.SignalMarkers, "defaults survive")
		assert.Contains(t, cfg.StringClasses, "QString")
		assert.Equal(t, map[string]string{"CALC_API": ""}, cfg.Defines)

		info, ok := cfg.TypeInfo["PrivateConstructor"]
		require.True(t, ok)
		require.NotNil(t, info.IsDefaultConstructible)
		assert.False(t, *info.IsDefaultConstructible)
	})

	t.Run("No file", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, "-", cfg.Output)
		assert.Empty(t, cfg.Inputs)
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("Malformed file", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "classes: [unclosed"))
		assert.Error(t, err)
	})
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("BINDGEN_FUNCTIONS", "other_.*")
	t.Setenv("BINDGEN_MACROS", "")
	t.Setenv("BINDGEN_OUTPUT", "env.json")
	t.Setenv("BINDGEN_CLASSES", "Extra, More ,")
	t.Setenv("BINDGEN_ENUMS", "Flags")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "other_.*", cfg.Functions)
	assert.Equal(t, "", cfg.Macros, "a set but empty variable disables the filter")
	assert.Equal(t, "env.json", cfg.Output)
	assert.Equal(t, []string{"Adder", "Module::Derived1", "Extra", "More"}, cfg.Classes)
	assert.Equal(t, []string{"Numeral", "Flags"}, cfg.Enums)
}

func TestPipeline(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	pc, err := cfg.Pipeline()
	require.NoError(t, err)
	assert.True(t, pc.Functions.MatchFull("mycalc_add"))
	assert.False(t, pc.Functions.MatchFull("ns::mycalc_add"))
	assert.True(t, pc.Macros.Search("MY_CONSTANT_PI"))
	assert.Equal(t, []string{"QFlags", "Flags"}, pc.Normalize.FlagsTemplates)
	assert.Contains(t, pc.Normalize.TypeInfo, "PrivateConstructor")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		offset  int
	}{
		{
			name:    "no inputs",
			cfg:     Config{Functions: "ok"},
			wantErr: ErrNoInput,
		},
		{
			name:   "bad function pattern",
			cfg:    Config{Inputs: []string{"a.hpp"}, Functions: "x[z-a]"},
			offset: 2,
		},
		{
			name:   "bad macro pattern",
			cfg:    Config{Inputs: []string{"a.hpp"}, Macros: "A*+"},
			offset: 1,
		},
		{
			name: "valid",
			cfg:  Config{Inputs: []string{"a.hpp"}, Functions: "f.*", Macros: ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.offset != 0:
				var perr *pattern.Error
				require.True(t, errors.As(err, &perr))
				assert.Equal(t, tt.offset, perr.Offset)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
