package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Models(t *testing.T) {
	cfg := Default()
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("Default().Model = %q, want %q", cfg.Model, "gpt-4o-mini")
	}
	if cfg.ImageModel != "gpt-image-1" {
		t.Fatalf("Default().ImageModel = %q, want %q", cfg.ImageModel, "gpt-image-1")
	}
}

func TestLoad_MissingFile_UsesDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("STUDIO_MODEL", "")
	t.Setenv("STUDIO_IMAGE_MODEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != path {
		t.Fatalf("cfg.Source = %q, want %q", cfg.Source, path)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("cfg.Model = %q, want %q", cfg.Model, "gpt-4o-mini")
	}
}

func TestLoad_FromTOML(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("STUDIO_MODEL", "")
	t.Setenv("STUDIO_IMAGE_MODEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
api_key = "test-key"
base_url = "https://example.test"
model = "gpt-4o"
brand = "acme"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("cfg.Model = %q, want %q", cfg.Model, "gpt-4o")
	}
	if cfg.Brand != "acme" {
		t.Fatalf("cfg.Brand = %q, want %q", cfg.Brand, "acme")
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("STUDIO_MODEL", "env-model")
	t.Setenv("STUDIO_IMAGE_MODEL", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
api_key = "file-key"
model = "file-model"
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("cfg.APIKey = %q, want env override", cfg.APIKey)
	}
	if cfg.Model != "env-model" {
		t.Fatalf("cfg.Model = %q, want env override", cfg.Model)
	}
}
