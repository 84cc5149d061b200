package bootstrap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadenvReadsNamedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CAMPUSNOTIFY_TEST_VALUE=from-file\nBRAND_NAME_TEST=keep\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("BRAND_NAME_TEST", "preset")
	os.Unsetenv("CAMPUSNOTIFY_TEST_VALUE")
	t.Cleanup(func() { os.Unsetenv("CAMPUSNOTIFY_TEST_VALUE") })

	Loadenv()
	assert.Equal(t, "from-file", os.Getenv("CAMPUSNOTIFY_TEST_VALUE"))
	assert.Equal(t, "preset", os.Getenv("BRAND_NAME_TEST"))
}
