package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nonibytes/mongoschema/pkg/mongoschema/mserrors"
)

func TestLoadRequiresMongoURI(t *testing.T) {
	t.Setenv("MONGOSCHEMA_MONGODB_URI", "")
	t.Setenv("MONGOSCHEMA_DEFAULT_DB", "shop")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error when mongodb_uri is unset")
	}
	if !mserrors.IsKind(err, mserrors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadRequiresDefaultDB(t *testing.T) {
	t.Setenv("MONGOSCHEMA_MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGOSCHEMA_DEFAULT_DB", "")

	_, err := Load()
	if err == nil {
		t.Fatalf("expected an error when default_db is unset")
	}
	if !mserrors.IsKind(err, mserrors.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestLoadPicksUpEnvironmentOverrides(t *testing.T) {
	t.Setenv("MONGOSCHEMA_MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGOSCHEMA_DEFAULT_DB", "shop")
	t.Setenv("MONGOSCHEMA_SAMPLE_SIZE", "250")
	t.Setenv("MONGOSCHEMA_BATCH_SIZE", "50")
	t.Setenv("MONGOSCHEMA_RATE_LIMIT_MS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MongoURI != "mongodb://localhost:27017" || cfg.DefaultDB != "shop" {
		t.Fatalf("unexpected required fields: %+v", cfg)
	}
	if cfg.SampleSize != 250 || cfg.BatchSize != 50 || cfg.RateLimitMS != 10 {
		t.Fatalf("expected env overrides to take effect, got %+v", cfg)
	}
}

func TestLoadPerUserFileOutranksProjectFile(t *testing.T) {
	home := t.TempDir()
	homeFile := "mongodb_uri: mongodb://home\ndefault_db: homedb\nsample_size: 111\n"
	if err := os.WriteFile(filepath.Join(home, ".mongoschema.yml"), []byte(homeFile), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	t.Setenv("HOME", home)

	project := t.TempDir()
	projectFile := "mongodb_uri: mongodb://project\ndefault_db: projectdb\nsample_size: 222\n"
	if err := os.WriteFile(filepath.Join(project, ".mongoschema.yml"), []byte(projectFile), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	t.Chdir(project)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MongoURI != "mongodb://home" || cfg.DefaultDB != "homedb" || cfg.SampleSize != 111 {
		t.Fatalf("expected the per-user file to outrank the project file, got %+v", cfg)
	}
}

func TestLoadDefaultsWhenOptionalFieldsUnset(t *testing.T) {
	t.Setenv("MONGOSCHEMA_MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MONGOSCHEMA_DEFAULT_DB", "shop")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SampleSize != 1000 || cfg.BatchSize != 500 || cfg.RateLimitMS != 0 {
		t.Fatalf("expected viper defaults to apply, got %+v", cfg)
	}
}
