package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LdDl/algo-plugin-go/plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand("test", "none", "unknown")
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestList(t *testing.T) {
	out, _, err := execute(t, "", "list")
	require.NoError(t, err)
	for _, name := range []string{"passthrough", "score_filter", "tracker"} {
		assert.Contains(t, out, name)
	}
}

func TestDefinition(t *testing.T) {
	out, _, err := execute(t, "", "definition", "label_filter", "--set", `labels=["car"]`, "--set", "case_sensitive=true")
	require.NoError(t, err)

	var def plugin.Definition
	require.NoError(t, def.UnmarshalJSON([]byte(out)))
	assert.Equal(t, "label_filter", def.Name)
	v, _ := def.Property("case_sensitive")
	assert.True(t, v.Equal(plugin.Bool(true)))
	v, _ = def.Property("labels")
	assert.True(t, v.Equal(plugin.Array(plugin.String("car"))))

	_, _, err = execute(t, "", "definition", "tracker", "--set", "algorithm=iou")
	require.NoError(t, err, "non JSON override is a string")

	_, _, err = execute(t, "", "definition", "score_filter", "--set", "nope=1")
	assert.ErrorIs(t, err, plugin.ErrPropertyNotFound)

	_, _, err = execute(t, "", "definition", "score_filter", "--set", "threshold")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"plugins": [{"name": "score_filter"}, {"name": "tracker"}]}`), 0o600))

	frames := strings.Join([]string{
		`[{"target_id":1,"label":"car","score":0.9,"rect":[0,0,10,10],"track_id":-1},{"target_id":2,"label":"car","score":0.2,"rect":[50,50,10,10],"track_id":-1}]`,
		``,
		`[{"target_id":1,"label":"car","score":0.95,"rect":[1,0,10,10],"track_id":-1}]`,
	}, "\n")
	out, stderr, err := execute(t, frames, "run", "--config", config, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Plugin stats")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		objects, err := plugin.UnmarshalObjects([]byte(line))
		require.NoError(t, err)
		require.Len(t, objects, 1)
		assert.Equal(t, int64(1), objects[0].TrackID)
	}

	_, _, err = execute(t, `not json`, "run", "--config", config)
	assert.Error(t, err)

	_, _, err = execute(t, "", "run")
	assert.Error(t, err, "config flag is required")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRun_OutputWriteError(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "chain.json")
	require.NoError(t, os.WriteFile(config, []byte(`{"plugins": [{"name": "passthrough"}]}`), 0o600))

	var stderr bytes.Buffer
	cmd := newRootCommand("test", "none", "unknown")
	cmd.SetArgs([]string{"run", "--config", config})
	cmd.SetIn(strings.NewReader(`[{"target_id":1,"label":"car","score":0.9,"rect":[0,0,10,10]}]`))
	cmd.SetOut(brokenWriter{})
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestParseOverrides(t *testing.T) {
	values, err := parseOverrides([]string{"threshold=0.7", "labels=[\"a\"]", "name=plain text"})
	require.NoError(t, err)
	assert.True(t, values["threshold"].Equal(plugin.Float(0.7)))
	assert.True(t, values["labels"].Equal(plugin.Array(plugin.String("a"))))
	assert.True(t, values["name"].Equal(plugin.String("plain text")))

	_, err = parseOverrides([]string{"=1"})
	assert.Error(t, err)
}
