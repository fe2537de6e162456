package testutil

import (
	"os"
	"strings"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	for _, name := range []string{"valid_config.toml", "valid_config.yaml", "invalid_config.toml"} {
		data, err := LoadFixture(name)
		if err != nil {
			t.Errorf("LoadFixture(%q) error = %v", name, err)
			continue
		}
		if !strings.Contains(string(data), "alpha") {
			t.Errorf("LoadFixture(%q) does not define backend alpha", name)
		}
	}
}

func TestLoadFixture_NotFound(t *testing.T) {
	if _, err := LoadFixture("nonexistent.toml"); err == nil {
		t.Error("expected error for nonexistent fixture")
	}
}

func TestWriteFixture(t *testing.T) {
	path := WriteFixture(t, t.TempDir(), "valid_config.toml")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("WriteFixture() path %s: %v", path, err)
	}
}
