// Package config provides layered configuration for the mrustc-core driver:
// environment-driven search-path resolution via MRUSTC_CORE_PATH /
// MRUSTC_DUMP_PROCMACRO, plus an optional mrustc-core.yaml project file for
// lang-item table overrides and proc-macro search paths.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configFileNames lists the project config files Load searches for, in
// priority order.
var configFileNames = []string{"mrustc-core.yaml", "mrustc-core.yml", ".mrustc-core.yaml"}

// Config is the mrustc-core driver's resolved configuration.
type Config struct {
	// Target selects the const-eval target's pointer width ("32" or "64").
	Target string `mapstructure:"target" yaml:"target"`

	// Edition gates which lang items ConvertHIR_ExpandAliases_Self and the
	// derive/lang-item expander will accept.
	Edition string `mapstructure:"edition" yaml:"edition"`

	// SearchPaths are additional directories to search for crate modules.
	SearchPaths []string `mapstructure:"search_paths" yaml:"search_paths"`

	// ProcMacroPaths are additional directories doublestar-globbed for
	// compiled proc-macro executables.
	ProcMacroPaths []string `mapstructure:"proc_macro_paths" yaml:"proc_macro_paths"`

	// DumpProcMacro, when set, writes the raw proc-macro wire protocol
	// traffic to this path for debugging (MRUSTC_DUMP_PROCMACRO).
	DumpProcMacro string `mapstructure:"dump_proc_macro" yaml:"dump_proc_macro"`

	// LangItemOverrides lets a project config remap a lang-item name to a
	// different absolute path than the built-in table, for vendored/shimmed
	// core crates.
	LangItemOverrides map[string]string `mapstructure:"lang_item_overrides" yaml:"lang_item_overrides"`
}

// Default returns the zero-config defaults.
func Default() *Config {
	return &Config{
		Target:            "64",
		Edition:           "2021",
		SearchPaths:       []string{"."},
		ProcMacroPaths:    []string{"target/**/deps"},
		LangItemOverrides: map[string]string{},
	}
}

// Load reads configuration from, in increasing priority: built-in defaults,
// an optional project YAML file (configPath, or the first of
// configFileNames found in the working directory), then MRUSTC_CORE_PATH /
// MRUSTC_DUMP_PROCMACRO environment overrides.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		found := false
		for _, name := range configFileNames {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				found = true
				break
			}
		}
		if !found {
			return applyEnv(Default()), nil
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return applyEnv(Default()), nil
		}
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return applyEnv(cfg), nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("target", d.Target)
	v.SetDefault("edition", d.Edition)
	v.SetDefault("search_paths", d.SearchPaths)
	v.SetDefault("proc_macro_paths", d.ProcMacroPaths)
	v.SetDefault("lang_item_overrides", d.LangItemOverrides)
}

// applyEnv layers MRUSTC_CORE_PATH / MRUSTC_DUMP_PROCMACRO on top of cfg,
// generalizing getDefaultSearchPaths/getStdlibPath's os.Getenv reads.
func applyEnv(cfg *Config) *Config {
	if corePath := os.Getenv("MRUSTC_CORE_PATH"); corePath != "" {
		cfg.SearchPaths = append(cfg.SearchPaths, strings.Split(corePath, string(os.PathListSeparator))...)
	}
	if dump := os.Getenv("MRUSTC_DUMP_PROCMACRO"); dump != "" {
		cfg.DumpProcMacro = dump
	}
	return cfg
}

// Dump renders cfg back to YAML with yaml.v3, so `mrustc-core config dump`
// can show the fully-resolved (defaults + file + env) configuration a run
// will use.
func (c *Config) Dump() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadFromPath loads the configuration rooted at dir, checking each of
// configFileNames in turn before falling back to Default.
func LoadFromPath(dir string) (*Config, error) {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return applyEnv(Default()), nil
}
