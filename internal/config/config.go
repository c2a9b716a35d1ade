// Package config loads the options spec.md §6.7 enumerates, with the
// documented precedence (process environment > per-user local config
// > project config) implemented via spf13/viper's layered merge,
// mirroring original_source/config.py's precedence ordering while
// replacing its hand-rolled settings merge with viper.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
)

// Config holds the resolved options of spec.md §6.7.
type Config struct {
	MongoURI       string
	DefaultDB      string
	SampleSize     int
	BatchSize      int
	RateLimitMS    int
	RecommenderKey string // advisory only; ignored by the core
}

const envPrefix = "MONGOSCHEMA"

// Load resolves Config from the process environment, the per-user
// file ~/.mongoschema.yml, and the project file .mongoschema.yml (in
// that precedence order, highest first), returning a config error
// (spec.md §7.1) if mongodb_uri or default_db is still unset.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("sample_size", 1000)
	v.SetDefault("batch_size", 500)
	v.SetDefault("rate_limit_ms", 0)

	// Merge lowest precedence first: viper's MergeInConfig lets a later
	// merge win ties, so the project file goes in before the per-user
	// file to keep per-user settings on top of it.
	if cwd, err := os.Getwd(); err == nil {
		projectFile := filepath.Join(cwd, ".mongoschema.yml")
		if _, err := os.Stat(projectFile); err == nil {
			v.SetConfigFile(projectFile)
			_ = v.MergeInConfig()
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName(".mongoschema")
		v.AddConfigPath(home)
		_ = v.MergeInConfig()
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		MongoURI:       v.GetString("mongodb_uri"),
		DefaultDB:      v.GetString("default_db"),
		SampleSize:     v.GetInt("sample_size"),
		BatchSize:      v.GetInt("batch_size"),
		RateLimitMS:    v.GetInt("rate_limit_ms"),
		RecommenderKey: v.GetString("ai_recommender_key"),
	}

	if cfg.MongoURI == "" {
		return nil, mserrors.New(mserrors.ErrConfig, "mongodb_uri is required")
	}
	if cfg.DefaultDB == "" {
		return nil, mserrors.New(mserrors.ErrConfig, "default_db is required")
	}
	return cfg, nil
}
