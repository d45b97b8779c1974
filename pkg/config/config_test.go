package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/platform"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvVerbose, "")

	r, err := Resolve(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "Geolocation", r.Service)
	assert.Equal(t, geolocation.DefaultChannel, r.Channel)
	assert.Equal(t, geolocation.DefaultResultsChannel, r.ResultsChannel)
	assert.Equal(t, []string{platform.PermissionCoarseLocation, platform.PermissionFineLocation}, r.Permissions)
	assert.Equal(t, logrus.InfoLevel, r.LogLevel)
	assert.False(t, r.Verbose)
	assert.Equal(t, "geolocation", r.MetricsNS)
}

func TestResolveFromFile(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvVerbose, "")
	dir := t.TempDir()
	writeFile(t, dir, FileName, `
plugin:
  service: Location
  channel: app/location
permissions:
  - android.permission.ACCESS_FINE_LOCATION
  - android.permission.ACCESS_FINE_LOCATION
log:
  level: debug
  verbose: true
metrics:
  namespace: app_geo
`)

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, "Location", r.Service)
	assert.Equal(t, "app/location", r.Channel)
	assert.Equal(t, "app/location/results", r.ResultsChannel)
	assert.Equal(t, []string{platform.PermissionFineLocation}, r.Permissions)
	assert.Equal(t, logrus.DebugLevel, r.LogLevel)
	assert.True(t, r.Verbose)
	assert.Equal(t, "app_geo", r.MetricsNS)
	assert.Equal(t, logrus.DebugLevel, r.Logger().GetLevel())
}

func TestResolveEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "warn")
	// Register restoration, then unset so .env can supply the value.
	t.Setenv(EnvVerbose, "")
	require.NoError(t, os.Unsetenv(EnvVerbose))
	dir := t.TempDir()
	writeFile(t, dir, FileName, "log:\n  level: debug\n")
	writeFile(t, dir, ".env", EnvVerbose+"=true\n")

	r, err := Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, r.LogLevel)
	assert.True(t, r.Verbose)
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "plugin: ["},
		{name: "bad level", yaml: "log:\n  level: loud\n"},
		{name: "empty permissions", yaml: "permissions: []\n"},
		{name: "blank permission", yaml: "permissions: [\" \"]\n"},
		{name: "same channels", yaml: "plugin:\n  channel: a\n  results_channel: a\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLogLevel, "")
			t.Setenv(EnvVerbose, "")
			dir := t.TempDir()
			writeFile(t, dir, FileName, tt.yaml)
			_, err := Resolve(dir)
			assert.Error(t, err)
		})
	}
}
