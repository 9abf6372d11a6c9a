package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/agentstation/rbxproducts"
	"github.com/agentstation/rbxproducts/internal/cmd/cmdutil"
	"github.com/agentstation/rbxproducts/internal/journal"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
	"github.com/agentstation/rbxproducts/pkg/remote"
)

func testConfig(dir string) *Config {
	return &Config{
		File:        filepath.Join(dir, "products.toml"),
		Concurrency: 1,
		LogFormat:   "json",
		LogOutput:   "discard",
	}
}

func newTestApp(t *testing.T, mem *remote.Memory) (*App, string) {
	t.Helper()
	dir := t.TempDir()
	nop := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2026-01-01", "test",
		WithConfig(testConfig(dir)),
		WithLogger(&nop),
		WithConnector(rbxproducts.Static(mem)),
	)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return app, dir
}

// run executes one command line against app and returns stdout and stderr.
func run(t *testing.T, app *App, args ...string) (string, string, error) {
	t.Helper()
	root := app.createRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2026-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2026-01-01" {
		t.Errorf("Date() = %s, want 2026-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Journal verifies the journal is opened once and only when configured.
func TestApp_Journal(t *testing.T) {
	app, dir := newTestApp(t, remote.NewMemory())

	store, err := app.Journal()
	if err != nil || store != nil {
		t.Fatalf("Journal() without path = %v, %v; want nil, nil", store, err)
	}

	app.config.Journal = filepath.Join(dir, "journal.db")
	first, err := app.Journal()
	if err != nil {
		t.Fatalf("Journal() failed: %v", err)
	}
	second, err := app.Journal()
	if err != nil {
		t.Fatalf("Journal() failed on second call: %v", err)
	}
	if first == nil || first != second {
		t.Error("Journal() returned different instances, expected singleton")
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() failed: %v", err)
	}
}

// TestApp_InitSyncHistory runs the main workflow through the root command.
func TestApp_InitSyncHistory(t *testing.T) {
	mem := remote.NewMemory()
	app, dir := newTestApp(t, mem)
	file := filepath.Join(dir, "shop.toml")
	db := filepath.Join(dir, "journal.db")

	if _, stderr, err := run(t, app, "init", "-f", file, "--universe", "77"); err != nil {
		t.Fatalf("init failed: %v", err)
	} else if !strings.Contains(stderr, "Created "+file) {
		t.Errorf("init stderr = %q", stderr)
	}

	stdout, _, err := run(t, app, "sync", "-f", file, "-y", "--journal", db, "--format", "json")
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	var result rbxproducts.SyncResult
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("sync output is not JSON: %v\n%s", err, stdout)
	}
	if result.UniverseID != 77 {
		t.Errorf("UniverseID = %d, want 77", result.UniverseID)
	}
	if got := len(mem.Calls()); got != 2 {
		t.Errorf("remote calls = %d, want 2", got)
	}
	if result.GeneratedFile == "" {
		t.Error("GeneratedFile is empty, expected the starter Luau file")
	}

	stdout, _, err = run(t, app, "plan", "-f", file, "--format", "json")
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if !strings.Contains(stdout, `"noop"`) {
		t.Errorf("plan after sync should be all no-ops:\n%s", stdout)
	}

	stdout, _, err = run(t, app, "history", "--journal", db, "--format", "json")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	var runs []journal.Run
	if err := json.Unmarshal([]byte(stdout), &runs); err != nil {
		t.Fatalf("history output is not JSON: %v\n%s", err, stdout)
	}
	if len(runs) != 1 || runs[0].Command != "sync" || runs[0].Created != 2 {
		t.Errorf("history = %+v, want one sync run with 2 creates", runs)
	}
}

// TestApp_PartialFailureExitCode verifies failed operations map to exit code 2.
func TestApp_PartialFailureExitCode(t *testing.T) {
	mem := remote.NewMemory()
	mem.Fail = func(string, catalog.Category, string) error {
		return errors.NewAPIError("roblox", 500, "boom")
	}
	app, dir := newTestApp(t, mem)
	file := filepath.Join(dir, "products.toml")

	if _, _, err := run(t, app, "init", "--universe", "5"); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	_, _, err := run(t, app, "sync", "-f", file, "-y", "--format", "table")
	if got := cmdutil.ExitCode(err); got != cmdutil.ExitPartial {
		t.Errorf("ExitCode = %d, want %d (err: %v)", got, cmdutil.ExitPartial, err)
	}
}

// TestApp_VersionCommand verifies version output.
func TestApp_VersionCommand(t *testing.T) {
	app, _ := newTestApp(t, remote.NewMemory())

	stdout, _, err := run(t, app, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if stdout != "rbxproducts 1.0.0\n" {
		t.Errorf("version = %q", stdout)
	}

	stdout, _, err = run(t, app, "version", "-v")
	if err != nil {
		t.Fatalf("version -v failed: %v", err)
	}
	if !strings.Contains(stdout, "commit:   abc123") {
		t.Errorf("version -v = %q, want commit line", stdout)
	}
}

// TestApp_ManCommand verifies the man page renders.
func TestApp_ManCommand(t *testing.T) {
	app, _ := newTestApp(t, remote.NewMemory())

	stdout, _, err := run(t, app, "man")
	if err != nil {
		t.Fatalf("man failed: %v", err)
	}
	if !strings.Contains(stdout, "RBXPRODUCTS") {
		t.Error("man page is missing its title")
	}
}
