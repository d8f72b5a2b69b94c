package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "64", cfg.Target)
	assert.Equal(t, "2021", cfg.Edition)
	assert.Equal(t, []string{"."}, cfg.SearchPaths)
	assert.Empty(t, cfg.DumpProcMacro)
}

func TestLoadNoConfigFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(originalDir)
	require.NoError(t, os.Chdir(tmpDir))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "64", cfg.Target)
}

func TestLoadMergesProjectFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "mrustc-core.yaml")
	require.NoError(t, os.WriteFile(path, []byte("target: \"32\"\nedition: \"2018\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "32", cfg.Target)
	assert.Equal(t, "2018", cfg.Edition)
}

// TestApplyEnvOverridesSearchPaths exercises MRUSTC_CORE_PATH layering over
// the file/default config.
func TestApplyEnvOverridesSearchPaths(t *testing.T) {
	t.Setenv("MRUSTC_CORE_PATH", "/opt/crates"+string(os.PathListSeparator)+"/opt/more")
	cfg := applyEnv(Default())
	assert.Contains(t, cfg.SearchPaths, "/opt/crates")
	assert.Contains(t, cfg.SearchPaths, "/opt/more")
}

func TestApplyEnvDumpProcMacro(t *testing.T) {
	t.Setenv("MRUSTC_DUMP_PROCMACRO", "/tmp/procmacro.log")
	cfg := applyEnv(Default())
	assert.Equal(t, "/tmp/procmacro.log", cfg.DumpProcMacro)
}

func TestDumpRoundTrips(t *testing.T) {
	cfg := Default()
	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "target:")
	assert.Contains(t, out, "edition:")
}
