package cmd

import (
	"bytes"
	"strings"
	"testing"
)

// ============================================================================
// Command Tree Tests
// ============================================================================

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	if root.Use != "tasknest" {
		t.Errorf("root.Use = %q, want %q", root.Use, "tasknest")
	}

	want := []string{"serve", "mcp", "migrate", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"bogus"})

	err := root.Execute()
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown command")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Errorf("error = %v, want mention of the unknown command", err)
	}
}

func TestServeCmd_RejectsExtraArgs(t *testing.T) {
	// Args validation runs before RunE, so this never touches config loading.
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"serve", ":8000", ":9000"})

	if err := root.Execute(); err == nil {
		t.Fatal("Execute() = nil, want error for too many arguments")
	}
}

func TestRootCmd_Help(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--help"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	help := out.String()
	for _, expected := range []string{"tasknest", "serve", "mcp", "migrate", "version"} {
		if !strings.Contains(help, expected) {
			t.Errorf("help output missing %q\nGot: %s", expected, help)
		}
	}
}

// ============================================================================
// version Tests
// ============================================================================

func TestVersionCmd_Output(t *testing.T) {
	originalVersion := Version
	originalBuildTime := BuildTime
	originalGitCommit := GitCommit
	defer func() {
		Version = originalVersion
		BuildTime = originalBuildTime
		GitCommit = originalGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2026-01-01T00:00:00Z"
	GitCommit = "abc1234"

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	expectedStrings := []string{
		"tasknest 1.2.3",
		"Build Time: 2026-01-01T00:00:00Z",
		"Git Commit: abc1234",
		"Go Version: go",
	}
	for _, expected := range expectedStrings {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("version output missing %q\nGot: %s", expected, out.String())
		}
	}
}
