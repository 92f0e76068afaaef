package plancache

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/plancache/plancache/plan"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// FileConfig is a worker configuration loaded from a YAML file.
type FileConfig struct {
	Options  Options
	Origin   string
	Scope    string
	Provider string
	DB       string
	Plan     plan.Plan
}

type rawConfig struct {
	Version     string           `yaml:"version"`
	SkipWaiting bool             `yaml:"skipWaiting"`
	Debug       bool             `yaml:"debug"`
	Origin      string           `yaml:"origin"`
	Scope       string           `yaml:"scope"`
	Provider    string           `yaml:"provider"`
	DB          string           `yaml:"db"`
	Plan        []map[string]any `yaml:"plan"`
}

// rawEntry is the untyped shape of one plan entry in the config
// file, decoded into the tagged plan.Entry union afterwards.
type rawEntry struct {
	Strategy string         `mapstructure:"strategy"`
	Paths    any            `mapstructure:"paths"`
	Backup   string         `mapstructure:"backup"`
	Files    *plan.FileSpec `mapstructure:"files"`
}

// LoadConfig reads and parses a worker configuration file.
// Any malformed entry is a fatal configuration error.
func LoadConfig(filename string) (FileConfig, error) {
	var config FileConfig
	configBytes, err := os.ReadFile(filename)
	if err != nil {
		return config, err
	}
	return parseConfig(configBytes)
}

func parseConfig(configBytes []byte) (FileConfig, error) {
	var config FileConfig
	var raw rawConfig
	if err := yaml.Unmarshal(configBytes, &raw); err != nil {
		return config, fmt.Errorf("parsing config: %w", err)
	}
	entries := make(plan.Plan, 0, len(raw.Plan))
	for i, m := range raw.Plan {
		entry, err := decodeEntry(m)
		if err != nil {
			return config, fmt.Errorf("plan entry %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	config = FileConfig{
		Options: Options{
			Version:     raw.Version,
			SkipWaiting: raw.SkipWaiting,
			Debug:       raw.Debug,
		},
		Origin:   raw.Origin,
		Scope:    raw.Scope,
		Provider: raw.Provider,
		DB:       raw.DB,
		Plan:     entries,
	}
	return config, nil
}

func decodeEntry(m map[string]any) (plan.Entry, error) {
	var raw rawEntry
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &raw,
		ErrorUnused: true,
	})
	if err != nil {
		return plan.Entry{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return plan.Entry{}, err
	}
	paths, err := parsePathExpr(raw.Paths)
	if err != nil {
		return plan.Entry{}, err
	}
	return plan.Entry{
		Strategy: plan.Strategy(raw.Strategy),
		Paths:    paths,
		Backup:   raw.Backup,
		Files:    raw.Files,
	}, nil
}

// parsePathExpr turns a config value into a path expression:
// a string (literal path, "re:" pattern, or scope symbol name),
// or a list of such values.
func parsePathExpr(v any) (plan.PathExpr, error) {
	switch value := v.(type) {
	case nil:
		return nil, nil
	case string:
		return parsePathString(value)
	case []any:
		list := make(plan.List, 0, len(value))
		for _, item := range value {
			expr, err := parsePathExpr(item)
			if err != nil {
				return nil, err
			}
			list = append(list, expr)
		}
		return list, nil
	}
	return nil, fmt.Errorf("invalid path expression %v (%T)", v, v)
}

func parsePathString(s string) (plan.PathExpr, error) {
	switch s {
	case "origin-and-below":
		return plan.OriginAndBelow, nil
	case "scope-and-below":
		return plan.ScopeAndBelow, nil
	}
	if strings.HasPrefix(s, "re:") {
		expr := strings.TrimPrefix(s, "re:")
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", expr, err)
		}
		return plan.Pattern{Regexp: re}, nil
	}
	return plan.Path(s), nil
}
