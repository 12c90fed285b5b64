package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathExists(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	assert.True(PathExists(dir))
	assert.False(PathExists(filepath.Join(dir, "nope")))
}

func TestBackup(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "minion")

	// no file, no backup, no error
	assert.NoError(Backup(path))
	assert.False(PathExists(path + ".bak"))

	err := os.WriteFile(path, []byte("master: localhost\n"), 0640)
	assert.NoError(err)

	assert.NoError(Backup(path))

	buf, err := os.ReadFile(path + ".bak")
	assert.NoError(err)
	assert.Equal("master: localhost\n", string(buf))

	fi, err := os.Stat(path + ".bak")
	assert.NoError(err)
	assert.Equal(os.FileMode(0640), fi.Mode().Perm())
}
