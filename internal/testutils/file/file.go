package testfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

/*
CreateTempFileWithContent writes "content" into file "name" inside test temp
directory and returns full path of the file. The file will be deleted
automatically when test finishes.
*/
func CreateTempFileWithContent(t testing.TB, name string, content string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0700))
	err := os.WriteFile(filePath, []byte(content), 0600)
	require.NoError(t, err, "failed to create test file '%s'", filePath)
	return filePath
}

// WriteFile writes "content" into "dir/name", creating intermediate directories.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	filePath := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0700))
	require.NoError(t, os.WriteFile(filePath, []byte(content), 0600), "failed to create test file '%s'", filePath)
	return filePath
}
