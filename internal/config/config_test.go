package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions represents a test configuration structure.
type testOptions struct {
	Config string `help:"Config file path"`

	// Basic types
	StringField string   `toml:"test.string_field" env:"STRING_FIELD"`
	BoolField   bool     `toml:"test.bool_field" env:"BOOL_FIELD"`
	IntField    int      `toml:"test.int_field" env:"INT_FIELD"`
	SliceField  []string `toml:"test.slice_field" env:"SLICE_FIELD"`

	// Nested config
	NestedString string `toml:"nested.value" env:"NESTED_VALUE"`
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extrun.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfigFile(t, `
[test]
string_field = "hello world"
bool_field = true
int_field = 42
slice_field = ["item1", "item2", "item3"]

[nested]
value = "nested value"
`)

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "hello world" {
		t.Errorf("Expected StringField to be 'hello world', got '%s'", opts.StringField)
	}
	if !opts.BoolField {
		t.Errorf("Expected BoolField to be true, got %v", opts.BoolField)
	}
	if opts.IntField != 42 {
		t.Errorf("Expected IntField to be 42, got %d", opts.IntField)
	}

	expectedSlice := []string{"item1", "item2", "item3"}
	if !reflect.DeepEqual(opts.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, opts.SliceField)
	}
	if opts.NestedString != "nested value" {
		t.Errorf("Expected NestedString to be 'nested value', got '%s'", opts.NestedString)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	t.Setenv("EXTRUN_STRING_FIELD", "env string")
	t.Setenv("EXTRUN_INT_FIELD", "123")
	t.Setenv("EXTRUN_SLICE_FIELD", "a,b,c")

	opts := &testOptions{}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "env string" {
		t.Errorf("Expected StringField to be 'env string', got '%s'", opts.StringField)
	}
	if opts.IntField != 123 {
		t.Errorf("Expected IntField to be 123, got %d", opts.IntField)
	}

	expectedSlice := []string{"a", "b", "c"}
	if !reflect.DeepEqual(opts.SliceField, expectedSlice) {
		t.Errorf("Expected SliceField to be %v, got %v", expectedSlice, opts.SliceField)
	}
}

func TestLoadConfigEnvOverridesToml(t *testing.T) {
	path := writeConfigFile(t, `
[test]
string_field = "toml value"
int_field = 100
`)

	t.Setenv("EXTRUN_STRING_FIELD", "env override")

	opts := &testOptions{Config: path}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "env override" {
		t.Errorf("Expected StringField to be 'env override', got '%s'", opts.StringField)
	}
	if opts.IntField != 100 {
		t.Errorf("Expected IntField to be 100 (from TOML), got %d", opts.IntField)
	}
}

func TestLoadConfigCLIFlagBeatsTOMLAndEnv(t *testing.T) {
	path := writeConfigFile(t, `
[test]
string_field = "toml value"
int_field = 7
`)

	t.Setenv("EXTRUN_STRING_FIELD", "env value")

	cmd := &cobra.Command{}
	cmd.Flags().String("string-field", "", "")
	if err := cmd.Flags().Set("string-field", "cli value"); err != nil {
		t.Fatalf("Failed to set flag: %v", err)
	}

	opts := &testOptions{Config: path, StringField: "cli value"}
	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if opts.StringField != "cli value" {
		t.Errorf("CLI-set flag was overridden, got '%s'", opts.StringField)
	}
	if opts.IntField != 7 {
		t.Errorf("Expected IntField to be 7 (from TOML), got %d", opts.IntField)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{Config: "/no/such/config.toml"}
	if err := LoadConfig(opts, nil); err != nil {
		t.Errorf("Expected missing config file to be tolerated, got %v", err)
	}
}

func TestGetNestedValue(t *testing.T) {
	data := map[string]any{
		"level1": map[string]any{
			"level2": map[string]any{
				"value": "nested_value",
			},
			"simple": "simple_value",
		},
		"root": "root_value",
	}

	tests := []struct {
		path     string
		expected any
	}{
		{"root", "root_value"},
		{"level1.simple", "simple_value"},
		{"level1.level2.value", "nested_value"},
		{"missing", nil},
		{"level1.missing", nil},
	}

	for _, tt := range tests {
		if got := getNestedValue(data, tt.path); got != tt.expected {
			t.Errorf("getNestedValue(%q) = %v, want %v", tt.path, got, tt.expected)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"Config", "config"},
		{"ProfileDir", "profile-dir"},
		{"LoggingLevel", "logging-level"},
	}

	for _, tt := range tests {
		if got := fieldNameToFlag(tt.field); got != tt.expected {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.field, got, tt.expected)
		}
	}
}
