package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/watchmedo-go/internal/config"
)

func TestGenerate_StdoutCompleteDocument(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "generate-tricks-yaml", "LoggerTrick", "watchdog.tricks.ShellCommandTrick")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "search-roots:"), stdout)
	assert.Contains(t, stdout, "tricks:\n")
	assert.Contains(t, stdout, "- watchdog.tricks.LoggerTrick:")
	assert.Contains(t, stdout, "- watchdog.tricks.ShellCommandTrick:")

	// The output is itself a loadable tricks file.
	path := filepath.Join(t.TempDir(), "tricks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(stdout), 0o600))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Tricks, 2)
	assert.Equal(t, "watchdog.tricks.LoggerTrick", cfg.Tricks[0].Identifier)
	assert.Equal(t, "watchdog.tricks.ShellCommandTrick", cfg.Tricks[1].Identifier)
}

func TestGenerate_AppendOnlyOmitsHeader(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "generate", "--append-only", "AutoRestartTrick")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "- watchdog.tricks.AutoRestartTrick:"), stdout)
	assert.NotContains(t, stdout, "search-roots")
}

func TestGenerate_SearchRootsInHeader(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCLI(t, "generate", "--search-roots", "a.tricks", "LoggerTrick")
	require.NoError(t, err)
	assert.Contains(t, stdout, "a.tricks")
}

func TestGenerate_UnknownTrick(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "generate", "NoSuchTrick")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoSuchTrick")
}

func TestGenerate_AppendToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tricks.yaml")

	// New file: header plus entry.
	_, stderr, err := runCLI(t, "generate", "--append-to-file", path, "LoggerTrick")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Appended 1 trick(s)")

	// Existing file: entry only.
	_, _, err = runCLI(t, "generate", "--append-to-file", path, "ShellCommandTrick")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "tricks:\n"))

	cfg, err := config.Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Tricks, 2)
	assert.Equal(t, "watchdog.tricks.ShellCommandTrick", cfg.Tricks[1].Identifier)
}

func TestAppendGenerated_KeepsExistingMode(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tricks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tricks:\n"), 0o600))

	require.NoError(t, appendGenerated(path, []byte("header\n"), []byte("- x: {}\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tricks:\n- x: {}\n", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
