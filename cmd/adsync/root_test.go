package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing default file is ignored", func(t *testing.T) {
		require.NoError(t, loadEnvFile(filepath.Join(dir, ".env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		require.Error(t, loadEnvFile(filepath.Join(dir, "nope.env"), true))
	})

	t.Run("does not override the environment", func(t *testing.T) {
		path := filepath.Join(dir, "test.env")
		require.NoError(t, os.WriteFile(path, []byte("ADSYNC_TEST_A=from-file\nADSYNC_TEST_B=from-file\n"), 0o600))

		t.Setenv("ADSYNC_TEST_A", "from-env")
		t.Setenv("ADSYNC_TEST_B", "")
		require.NoError(t, os.Unsetenv("ADSYNC_TEST_B"))

		require.NoError(t, loadEnvFile(path, true))
		require.Equal(t, "from-env", os.Getenv("ADSYNC_TEST_A"))
		require.Equal(t, "from-file", os.Getenv("ADSYNC_TEST_B"))
	})
}
