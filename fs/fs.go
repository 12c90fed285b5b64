package fs

import (
	"io"
	"os"
)

// PathExists check
func PathExists(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}

// CopyFile preserving the source file mode
func CopyFile(sourcePath, destinationPath string) (err error) {
	sourceFile, err := os.Open(sourcePath)
	if err != nil {
		return
	}
	defer sourceFile.Close()

	stat, err := sourceFile.Stat()
	if err != nil {
		return
	}

	destinationFile, err := os.OpenFile(destinationPath,
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, stat.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(destinationFile, sourceFile); err != nil {
		destinationFile.Close()
		return err
	}
	return destinationFile.Close()
}

// Backup copies path to path.bak. Nothing happens if path does not
// exist. An already existing backup is overwritten: the last state
// before the current run wins.
func Backup(path string) (err error) {
	if !PathExists(path) {
		return
	}
	return CopyFile(path, path+".bak")
}
