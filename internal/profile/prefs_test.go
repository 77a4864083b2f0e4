package profile

import (
	"strings"
	"testing"
)

func TestParsePrefs(t *testing.T) {
	content := `// comment line
user_pref("some.key", true);
user_pref("other.key", "a \"quoted\" value");
not a pref line
user_pref("numeric.key", 42);
`

	prefs := ParsePrefs(content)
	if len(prefs) != 3 {
		t.Fatalf("Expected 3 prefs, got %d", len(prefs))
	}

	if prefs[0].Key != "some.key" || prefs[0].Raw != "true" {
		t.Errorf("Unexpected first pref: %+v", prefs[0])
	}

	if prefs[1].Key != "other.key" {
		t.Errorf("Expected key with escaped quotes to parse, got %q", prefs[1].Key)
	}

	if prefs[2].Raw != "42" {
		t.Errorf("Expected raw value '42', got %q", prefs[2].Raw)
	}
}

func TestFormatPrefsRoundTrip(t *testing.T) {
	content := "user_pref(\"a.key\", \"value\");\nuser_pref(\"b.key\", false);\n"

	formatted := FormatPrefs(ParsePrefs(content))
	if formatted != content {
		t.Errorf("Round trip changed content:\nbefore: %q\nafter:  %q", content, formatted)
	}
}

func TestMergePrefsStripsBuildIdentityKeys(t *testing.T) {
	existing := []Pref{
		{Key: "extensions.lastAppBuildId", Raw: `"20240101"`},
		{Key: "extensions.lastAppVersion", Raw: `"99.0"`},
		{Key: "user.custom", Raw: "true"},
	}

	merged, err := MergePrefs(existing, nil)
	if err != nil {
		t.Fatalf("MergePrefs failed: %v", err)
	}

	for _, p := range merged {
		if p.Key == "extensions.lastAppBuildId" || p.Key == "extensions.lastAppVersion" {
			t.Errorf("Build identity key %q survived the merge", p.Key)
		}
	}

	if !containsPref(merged, "user.custom", "true") {
		t.Error("Existing non-identity pref was dropped")
	}
}

func TestMergePrefsPrecedence(t *testing.T) {
	// Existing value beats the built-in default for the same key.
	existing := []Pref{
		{Key: "devtools.chrome.enabled", Raw: "false"},
	}
	overrides := map[string]any{
		"extensions.autoDisableScopes": 14,
		"custom.override":              "set",
	}

	merged, err := MergePrefs(existing, overrides)
	if err != nil {
		t.Fatalf("MergePrefs failed: %v", err)
	}

	if count := countKey(merged, "devtools.chrome.enabled"); count != 1 {
		t.Errorf("Expected exactly one emission of overridden default, got %d", count)
	}
	if !containsPref(merged, "devtools.chrome.enabled", "false") {
		t.Error("Existing pref did not win over the built-in default")
	}

	if count := countKey(merged, "extensions.autoDisableScopes"); count != 1 {
		t.Errorf("Expected exactly one emission of override key, got %d", count)
	}
	if !containsPref(merged, "extensions.autoDisableScopes", "14") {
		t.Error("Caller override did not win over the built-in default")
	}

	if !containsPref(merged, "custom.override", `"set"`) {
		t.Error("New override key was dropped")
	}
}

func TestMergePrefsIdempotent(t *testing.T) {
	overrides := map[string]any{
		"zeta.key":  true,
		"alpha.key": 1,
	}

	first, err := MergePrefs(nil, overrides)
	if err != nil {
		t.Fatalf("First merge failed: %v", err)
	}

	// Feed the output back in as the existing file content.
	second, err := MergePrefs(ParsePrefs(FormatPrefs(first)), overrides)
	if err != nil {
		t.Fatalf("Second merge failed: %v", err)
	}

	if FormatPrefs(first) != FormatPrefs(second) {
		t.Errorf("Merge is not idempotent:\nfirst:  %q\nsecond: %q",
			FormatPrefs(first), FormatPrefs(second))
	}
}

func TestMergePrefsOverridesSorted(t *testing.T) {
	overrides := map[string]any{
		"c.key": 3,
		"a.key": 1,
		"b.key": 2,
	}

	merged, err := MergePrefs(nil, overrides)
	if err != nil {
		t.Fatalf("MergePrefs failed: %v", err)
	}

	out := FormatPrefs(merged)
	ai := strings.Index(out, "a.key")
	bi := strings.Index(out, "b.key")
	ci := strings.Index(out, "c.key")
	if !(ai < bi && bi < ci) {
		t.Errorf("Override keys not emitted in sorted order:\n%s", out)
	}
}

func TestMergePrefsUnencodableOverride(t *testing.T) {
	overrides := map[string]any{
		"bad.key": make(chan int),
	}

	if _, err := MergePrefs(nil, overrides); err == nil {
		t.Error("Expected error for unencodable override value")
	}
}

func containsPref(prefs []Pref, key, raw string) bool {
	for _, p := range prefs {
		if p.Key == key && p.Raw == raw {
			return true
		}
	}
	return false
}

func countKey(prefs []Pref, key string) int {
	n := 0
	for _, p := range prefs {
		if p.Key == key {
			n++
		}
	}
	return n
}
