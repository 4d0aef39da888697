package config

import (
	"errors"
	"sort"
	"testing"

	"gopkg.in/yaml.v2"
)

func TestDefaultEntries(t *testing.T) {
	entries := DefaultEntries()

	if len(entries) == 0 {
		t.Fatal("DefaultEntries() returned empty slice")
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Key] {
			t.Errorf("duplicate key %s", e.Key)
		}
		seen[e.Key] = true
		if e.Description == "" {
			t.Errorf("key %s has no description", e.Key)
		}
	}
}

// Every field of Config must be reachable through a documented entry,
// otherwise its LECTERN_ environment override silently does nothing.
func TestDefaultEntriesCoverConfig(t *testing.T) {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	var tree map[interface{}]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		t.Fatal(err)
	}

	var fields []string
	for section, v := range tree {
		for key := range v.(map[interface{}]interface{}) {
			fields = append(fields, section.(string)+"."+key.(string))
		}
	}
	sort.Strings(fields)

	for _, f := range fields {
		if GetDefault(f) == nil {
			t.Errorf("config field %s has no default entry", f)
		}
	}
	if len(fields) != len(DefaultEntries()) {
		t.Errorf("config has %d fields, %d default entries", len(fields), len(DefaultEntries()))
	}
}

func TestGetDefault(t *testing.T) {
	t.Run("existing_key", func(t *testing.T) {
		entry := GetDefault("speech.rate")
		if entry == nil {
			t.Fatal("GetDefault() returned nil for existing key")
		}
		if entry.Value != "-2%" {
			t.Errorf("GetDefault() Value = %v, want %q", entry.Value, "-2%")
		}
	})

	t.Run("non_existent_key", func(t *testing.T) {
		entry := GetDefault("does.not.exist")
		if entry != nil {
			t.Errorf("GetDefault() = %v, want nil for non-existent key", entry)
		}
	})
}

func TestLookupDefault(t *testing.T) {
	if _, err := LookupDefault("does.not.exist"); !errors.Is(err, ErrNoDefault) {
		t.Errorf("LookupDefault() error = %v, want ErrNoDefault", err)
	}
	e, err := LookupDefault("lesson.batch_size")
	if err != nil {
		t.Fatal(err)
	}
	if e.Value != 5 {
		t.Errorf("lesson.batch_size = %v, want 5", e.Value)
	}
}

func TestConfigEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Speech.Voice = "alloy"
	cfg.Lesson.BatchSize = 3

	got := map[string]any{}
	for _, e := range cfg.Entries() {
		got[e.Key] = e.Value
	}
	if got["speech.voice"] != "alloy" {
		t.Errorf("speech.voice = %v, want alloy", got["speech.voice"])
	}
	if got["lesson.batch_size"] != 3 {
		t.Errorf("lesson.batch_size = %v, want 3", got["lesson.batch_size"])
	}
	if len(cfg.Entries()) != len(DefaultEntries()) {
		t.Error("Entries() and DefaultEntries() differ in length")
	}
}

func TestIsSecret(t *testing.T) {
	tests := map[string]bool{
		"generation.api_key": true,
		"speech.api_key":     true,
		"cache.password":     true,
		"speech.voice":       false,
		"cache.addr":         false,
	}
	for key, want := range tests {
		if got := IsSecret(key); got != want {
			t.Errorf("IsSecret(%q) = %v, want %v", key, got, want)
		}
	}
}
