package reload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/extrun/extrun/internal/install"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClient reloads addons, failing the ids listed in failIDs.
type fakeClient struct {
	reloaded []string
	installs map[string]string
	failIDs  map[string]bool
}

func (f *fakeClient) InstallTemporaryAddon(_ context.Context, sourceDir string) (string, error) {
	return f.installs[sourceDir], nil
}

func (f *fakeClient) ReloadAddon(_ context.Context, id string) error {
	f.reloaded = append(f.reloaded, id)
	if f.failIDs[id] {
		return fmt.Errorf("reload of %s rejected", id)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }

func installedFixture(t *testing.T, client *fakeClient, plugins []install.Plugin) *install.Installer {
	t.Helper()
	installer := install.NewInstaller(testLogger())
	if err := installer.InstallTemporary(context.Background(), client, plugins); err != nil {
		t.Fatalf("Fixture install failed: %v", err)
	}
	return installer
}

func TestReloadAllTemporary(t *testing.T) {
	plugins := []install.Plugin{
		{ID: "first", SourceDir: "/proj/p1"},
		{ID: "second", SourceDir: "/proj/p2"},
	}
	client := &fakeClient{installs: map[string]string{
		"/proj/p1": "p1@dev",
		"/proj/p2": "p2@dev",
	}}
	installer := installedFixture(t, client, plugins)

	c := NewCoordinator(plugins, installer, client, testLogger())
	results := c.ReloadAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("Expected one result per plugin, got %d", len(results))
	}
	for i, res := range results {
		if res.SourceDir != plugins[i].SourceDir {
			t.Errorf("Result %d out of order: %q", i, res.SourceDir)
		}
		if res.Err != nil {
			t.Errorf("Unexpected failure for %q: %v", res.SourceDir, res.Err)
		}
	}
	if len(client.reloaded) != 2 || client.reloaded[0] != "p1@dev" || client.reloaded[1] != "p2@dev" {
		t.Errorf("Reloads not sequential in declared order: %v", client.reloaded)
	}
}

func TestReloadAllContinuesPastFailure(t *testing.T) {
	plugins := []install.Plugin{
		{ID: "first", SourceDir: "/proj/p1"},
		{ID: "second", SourceDir: "/proj/p2"},
		{ID: "third", SourceDir: "/proj/p3"},
	}
	client := &fakeClient{
		installs: map[string]string{
			"/proj/p1": "p1@dev",
			"/proj/p2": "p2@dev",
			"/proj/p3": "p3@dev",
		},
		failIDs: map[string]bool{"p2@dev": true},
	}
	installer := installedFixture(t, client, plugins)

	c := NewCoordinator(plugins, installer, client, testLogger())
	results := c.ReloadAll(context.Background())

	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Error("Plugins after a failure should still reload")
	}
	if results[1].Err == nil {
		t.Error("Expected failure result for the failing plugin")
	}
	if len(client.reloaded) != 3 {
		t.Errorf("A failure must not abort the batch, got %d reload calls", len(client.reloaded))
	}
}

func TestReloadAllUnmappedPlugin(t *testing.T) {
	plugins := []install.Plugin{
		{ID: "first", SourceDir: "/proj/p1"},
		{ID: "ghost", SourceDir: "/proj/never-installed"},
	}
	client := &fakeClient{installs: map[string]string{"/proj/p1": "p1@dev"}}
	installer := installedFixture(t, client, plugins[:1])

	c := NewCoordinator(plugins, installer, client, testLogger())
	results := c.ReloadAll(context.Background())

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Errorf("Mapped plugin failed: %v", results[0].Err)
	}
	if results[1].Err == nil {
		t.Error("Expected error result for plugin with no recorded addon id")
	}
}

func TestReloadAllProxy(t *testing.T) {
	plugins := []install.Plugin{
		{ID: "alpha@dev", SourceDir: "/proj/alpha", Name: "Alpha"},
		{ID: "beta@dev", SourceDir: "/proj/beta"},
	}

	var invocations [][]string
	side := NewSideChannel("/opt/host/bin", "/tmp/profile", testLogger())
	side.invoke = func(_ context.Context, binary string, args []string) error {
		invocations = append(invocations, append([]string{binary}, args...))
		return nil
	}

	c := NewProxyCoordinator(plugins, side, testLogger())
	c.settle = 0 // no settling delay in tests

	results := c.ReloadAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("Unexpected failure for %q: %v", res.SourceDir, res.Err)
		}
	}
	if len(invocations) != 2 {
		t.Fatalf("Expected 2 side-channel invocations, got %d", len(invocations))
	}

	first := invocations[0]
	if first[0] != "/opt/host/bin" || first[1] != "-profile" || first[2] != "/tmp/profile" {
		t.Errorf("Unexpected invocation shape: %v", first)
	}
}

func TestReloadAllProxyContinuesPastFailure(t *testing.T) {
	plugins := []install.Plugin{
		{ID: "alpha@dev", SourceDir: "/proj/alpha"},
		{ID: "beta@dev", SourceDir: "/proj/beta"},
	}

	calls := 0
	side := NewSideChannel("/opt/host/bin", "/tmp/profile", testLogger())
	side.invoke = func(_ context.Context, _ string, _ []string) error {
		calls++
		if calls == 1 {
			return fmt.Errorf("invocation failed")
		}
		return nil
	}

	c := NewProxyCoordinator(plugins, side, testLogger())
	c.settle = 0

	results := c.ReloadAll(context.Background())
	if results[0].Err == nil {
		t.Error("Expected first plugin to fail")
	}
	if results[1].Err != nil {
		t.Errorf("Second plugin should still reload: %v", results[1].Err)
	}
	if calls != 2 {
		t.Errorf("Expected both invocations despite failure, got %d", calls)
	}
}

func TestSettleDownCancelled(t *testing.T) {
	c := NewProxyCoordinator(nil, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.settleDown(ctx); err == nil {
		t.Error("Expected context cancellation to interrupt the settle delay")
	}
}
