package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWatchCmd(t *testing.T) {
	cmd := newWatchCmd(&globals{})

	assert.Equal(t, "watch", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	flag := cmd.Flags().Lookup("debounce")
	require.NotNil(t, flag)
	assert.Equal(t, "500ms", flag.DefValue)

	assert.ErrorContains(t, cmd.RunE(cmd, nil), "requires --config")
}

func TestIsConfigEvent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "openmind.yaml")

	assert.True(t, isConfigEvent(fsnotify.Event{Name: target, Op: fsnotify.Write}, target))
	assert.True(t, isConfigEvent(fsnotify.Event{Name: target, Op: fsnotify.Create}, target))
	assert.False(t, isConfigEvent(fsnotify.Event{Name: target, Op: fsnotify.Chmod}, target))
	assert.False(t, isConfigEvent(fsnotify.Event{Name: filepath.Join(dir, "other.yaml"), Op: fsnotify.Write}, target))
}

func TestRebuild(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "openmind.yaml")
	outputPath := filepath.Join(dir, "template.json")
	require.NoError(t, os.WriteFile(configPath, []byte("registry:\n  image_tag: v1.0.0\n"), 0644))

	g := &globals{configPath: configPath}
	cmd := newWatchCmd(g)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	opts := watchOptions{outputFormat: "json", outputFile: outputPath}
	require.True(t, rebuild(cmd, g, opts))
	assert.Contains(t, out.String(), "Lint passed")

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "openmind:v1.0.0")

	require.NoError(t, os.WriteFile(configPath, []byte("network:\n  max_azs: 0\n"), 0644))
	assert.False(t, rebuild(cmd, g, opts))
	assert.Contains(t, errOut.String(), "Config error")
}
