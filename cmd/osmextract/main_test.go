package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="55.7500" lon="37.6100"/>
  <node id="2" lat="55.7510" lon="37.6110"/>
  <way id="10">
    <nd ref="1"/>
    <nd ref="2"/>
    <tag k="highway" v="residential"/>
  </way>
</osm>`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setFlags(t *testing.T, file, agent string) string {
	t.Helper()
	dir := t.TempDir()
	prevFile, prevOut, prevTmp, prevAgent, prevMetrics := *osmFileName, *out, *tempDir, *agentStr, *metricsFname
	t.Cleanup(func() {
		*osmFileName, *out, *tempDir, *agentStr, *metricsFname = prevFile, prevOut, prevTmp, prevAgent, prevMetrics
	})
	*osmFileName = file
	*out = filepath.Join(dir, "map")
	*tempDir = dir
	*agentStr = agent
	*metricsFname = filepath.Join(dir, "map.prom")
	return dir
}

func TestRunFailures(t *testing.T) {
	setFlags(t, filepath.Join(t.TempDir(), "missing.osm"), "auto")
	assert.Error(t, run(quietLogger()))

	setFlags(t, "whatever.osm", "plane")
	assert.Error(t, run(quietLogger()))
}

func TestRun(t *testing.T) {
	source := filepath.Join(t.TempDir(), "tiny.osm")
	require.NoError(t, os.WriteFile(source, []byte(tinyOSM), 0o644))
	dir := setFlags(t, source, "auto")

	require.NoError(t, run(quietLogger()))
	for _, suffix := range []string{".nodes", ".edges", ".restrictions", ".names", ".prom"} {
		assert.FileExists(t, filepath.Join(dir, "map"+suffix))
	}
}
