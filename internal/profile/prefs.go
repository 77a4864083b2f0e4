package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Pref is a single preference line. Raw holds the JSON-encoded value text
// exactly as it appears in the file, so rewrites are byte-stable.
type Pref struct {
	Key string
	Raw string
}

// prefLine matches `user_pref("<key>", <value>);`.
var prefLine = regexp.MustCompile(`^user_pref\("((?:[^"\\]|\\.)*)",\s*(.*)\);\s*$`)

// buildIdentityKeys are stripped from any previously-persisted preferences
// so the host always treats the profile as freshly provisioned.
var buildIdentityKeys = map[string]bool{
	"extensions.lastAppBuildId": true,
	"extensions.lastAppVersion": true,
}

// defaultPrefs is the built-in lowest-precedence layer: a profile wired for
// extension development against a debuggable host instance.
var defaultPrefs = []Pref{
	mustPref("browser.shell.checkDefaultBrowser", false),
	mustPref("browser.sessionstore.resume_from_crash", false),
	mustPref("devtools.debugger.remote-enabled", true),
	mustPref("devtools.debugger.prompt-connection", false),
	mustPref("devtools.chrome.enabled", true),
	mustPref("extensions.autoDisableScopes", 0),
	mustPref("extensions.enabledScopes", 15),
	mustPref("extensions.update.enabled", false),
	mustPref("xpinstall.signatures.required", false),
	mustPref("toolkit.telemetry.enabled", false),
}

func mustPref(key string, value any) Pref {
	raw, err := json.Marshal(value)
	if err != nil {
		panic(err)
	}
	return Pref{Key: key, Raw: string(raw)}
}

// ParsePrefs extracts preference lines from file content. Lines that are
// not user_pref statements are discarded.
func ParsePrefs(content string) []Pref {
	var prefs []Pref
	for _, line := range strings.Split(content, "\n") {
		m := prefLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		prefs = append(prefs, Pref{Key: m[1], Raw: m[2]})
	}
	return prefs
}

// FormatPrefs renders preference lines in order.
func FormatPrefs(prefs []Pref) string {
	var b strings.Builder
	for _, p := range prefs {
		fmt.Fprintf(&b, "user_pref(%q, %s);\n", p.Key, p.Raw)
	}
	return b.String()
}

// MergePrefs assembles the preference set from three layers with precedence
// low to high: built-in defaults, surviving existing prefs (build-identity
// keys stripped), caller overrides. A key claimed by a higher layer is
// emitted only there, which keeps repeated merges byte-stable.
func MergePrefs(existing []Pref, overrides map[string]any) ([]Pref, error) {
	overridePrefs := make([]Pref, 0, len(overrides))
	overrideKeys := make([]string, 0, len(overrides))
	for key := range overrides {
		overrideKeys = append(overrideKeys, key)
	}
	sort.Strings(overrideKeys)
	for _, key := range overrideKeys {
		raw, err := json.Marshal(overrides[key])
		if err != nil {
			return nil, fmt.Errorf("preference %q is not encodable: %w", key, err)
		}
		overridePrefs = append(overridePrefs, Pref{Key: key, Raw: string(raw)})
	}

	overridden := make(map[string]bool, len(overridePrefs))
	for _, p := range overridePrefs {
		overridden[p.Key] = true
	}

	var surviving []Pref
	surviv := make(map[string]bool)
	for _, p := range existing {
		if buildIdentityKeys[p.Key] || overridden[p.Key] || surviv[p.Key] {
			continue
		}
		surviv[p.Key] = true
		surviving = append(surviving, p)
	}

	merged := make([]Pref, 0, len(defaultPrefs)+len(surviving)+len(overridePrefs))
	for _, p := range defaultPrefs {
		if surviv[p.Key] || overridden[p.Key] {
			continue
		}
		merged = append(merged, p)
	}
	merged = append(merged, surviving...)
	merged = append(merged, overridePrefs...)
	return merged, nil
}
