package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dsadash/dsadash/internal/schema"
)

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 3, 12, 15, 0, 0, 0, time.Local)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)},
		{"2026-03-01 09:30", time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		got, err := parseSince(tt.in, now)
		if err != nil {
			t.Errorf("parseSince(%q) failed: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseSince(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	got, err := parseSince("3 days ago", now)
	if err != nil {
		t.Fatalf("parseSince(3 days ago) failed: %v", err)
	}
	if d := now.Sub(got); d < 71*time.Hour || d > 73*time.Hour {
		t.Errorf("parseSince(3 days ago) = %v, %v before now", got, d)
	}

	if _, err := parseSince("zzzz", now); err == nil {
		t.Error("parseSince should reject text with no time expression")
	}
}

func TestWriteStructured(t *testing.T) {
	v := map[string]any{"questions": []schema.Question{{Name: "Two Sum", Status: "Solved", Pinned: true}}}

	var buf bytes.Buffer
	if err := writeStructured(&buf, "yaml", v); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"questions:", "name: Two Sum", "pinned: true"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("yaml output missing %q:\n%s", want, buf.String())
		}
	}

	buf.Reset()
	if err := writeStructured(&buf, "json", v); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"name": "Two Sum"`) {
		t.Errorf("json output = %s", buf.String())
	}

	if err := writeStructured(&buf, "xml", v); err == nil {
		t.Error("unknown format should fail")
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"list"}, {"sync"}, {"status"}, {"pin"}, {"random"}, {"add"}, {"search"},
		{"solution"}, {"history"}, {"dashboard"}, {"config", "show"}, {"config", "save"},
	} {
		cmd, _, err := rootCmd.Find(path)
		if err != nil || cmd.Name() != path[len(path)-1] {
			t.Errorf("command %v not registered", path)
		}
	}
}

func TestRootHelp(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"--help"})
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	}()

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(--help) failed: %v", err)
	}
	for _, want := range []string{"Questions:", "Setup:", "dashboard", "--sheet"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("help output missing %q:\n%s", want, buf.String())
		}
	}
}

func TestPersistentPreRunRoutesLogs(t *testing.T) {
	dir := t.TempDir()
	oldCfg, oldVerbose, oldOut := cfgFile, verbose, logOut
	defer func() { cfgFile, verbose, logOut = oldCfg, oldVerbose, oldOut }()

	// A missing config file is not an error.
	cfgFile = filepath.Join(dir, "config.toml")
	verbose = false
	logOut = nil

	rootCmd.PersistentPreRun(rootCmd, nil)
	if logOut != io.Discard {
		t.Errorf("logOut = %T, want io.Discard without a log file or --verbose", logOut)
	}
}

func TestMustOpenRegistersExitHook(t *testing.T) {
	dir := t.TempDir()
	oldCfg := cfgFile
	defer func() { cfgFile = oldCfg }()
	cfgFile = filepath.Join(dir, "config.toml")
	t.Setenv("DSA_DB_PATH", filepath.Join(dir, "state.db"))

	exitHooks = nil
	var order []string
	onFatal(func() { order = append(order, "first") })

	a := mustOpen(context.Background(), nil)
	onFatal(func() { order = append(order, "last") })
	if len(exitHooks) != 3 {
		t.Fatalf("registered %d exit hooks, want 3", len(exitHooks))
	}

	runExitHooks()
	if len(order) != 2 || order[0] != "last" || order[1] != "first" {
		t.Errorf("hooks ran as %v, want [last first]", order)
	}
	if exitHooks != nil {
		t.Error("exit hooks should be cleared after running")
	}
	// The hook registered by mustOpen already closed the database.
	if err := a.db.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}
