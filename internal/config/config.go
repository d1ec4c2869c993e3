// Package config defines tmetrics configuration and its layered loader.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pable/go-telemetry-metrics/internal/aggregator"
	"github.com/pable/go-telemetry-metrics/internal/identity"
	"github.com/pable/go-telemetry-metrics/internal/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// DBPath is the SQLite dataset store.
	DBPath string `koanf:"db_path"`

	// Addr configures the HTTP listen address for serve, e.g. ":8090".
	Addr string `koanf:"addr" validate:"required"`

	// IdentityFile is an optional YAML/JSON file with an "identities" map.
	IdentityFile string `koanf:"identity_file"`

	// Identities maps opaque player ids to display names. Entries here win
	// over the same id in IdentityFile.
	Identities map[string]string `koanf:"identities"`

	// RequiredCategories are always present as feature matrix columns.
	RequiredCategories []string `koanf:"required_categories"`

	// FeatureMetric combines repeated (subject, category) values: mean, sum or count.
	FeatureMetric string `koanf:"feature_metric"`

	// Report section sizes. Zero means unlimited.
	TopRivalries int `koanf:"top_rivalries" validate:"gte=0"`
	TopKillers   int `koanf:"top_killers" validate:"gte=0"`
	TopItems     int `koanf:"top_items" validate:"gte=0"`

	// ClusterSeed seeds k-means initialisation.
	ClusterSeed int64 `koanf:"cluster_seed"`

	// ItemGroups are the blueprint families counted by the shop report.
	ItemGroups []model.ItemGroup `koanf:"item_groups" validate:"dive"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8090",
		Identities:         map[string]string{},
		RequiredCategories: append([]string(nil), aggregator.DefaultCategories...),
		FeatureMetric:      aggregator.MetricSum.String(),
		TopRivalries:       aggregator.DefaultTopRivalries,
		TopKillers:         aggregator.DefaultTopKillers,
		TopItems:           aggregator.DefaultTopItems,
		ClusterSeed:        42,
		ItemGroups:         append([]model.ItemGroup(nil), aggregator.DefaultItemGroups...),
	}
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

var validate = newValidator()

// newValidator reports fields by their koanf key so errors match the config file.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field ranges. Every failure wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	if !logLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("%w: log_level %q (want debug, info, warn or error)", ErrInvalidConfig, c.LogLevel)
	}
	if _, err := aggregator.ParseMetric(c.FeatureMetric); err != nil {
		return fmt.Errorf("%w: feature_metric: %v", ErrInvalidConfig, err)
	}
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Metric returns the parsed FeatureMetric. Call after Validate.
func (c *Config) Metric() aggregator.Metric {
	m, _ := aggregator.ParseMetric(c.FeatureMetric)
	return m
}

// IdentityMap builds the identity map from IdentityFile and the inline
// Identities, the inline entries taking precedence.
func (c *Config) IdentityMap() (*identity.Map, error) {
	inline := identity.New(c.Identities)
	if c.IdentityFile == "" {
		return inline, nil
	}
	fromFile, err := identity.Load(c.IdentityFile)
	if err != nil {
		return nil, fmt.Errorf("load identity file: %w", err)
	}
	return identity.Merge(fromFile, inline), nil
}

// Pipeline returns the kill-log pipeline configured by c.
func (c *Config) Pipeline(ids *identity.Map, server string) aggregator.Pipeline {
	return aggregator.Pipeline{
		Identities:   ids,
		Filter:       aggregator.Filter{ServerID: server},
		TopRivalries: c.TopRivalries,
		TopKillers:   c.TopKillers,
		TopItems:     c.TopItems,
	}
}
