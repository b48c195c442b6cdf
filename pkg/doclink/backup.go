package doclink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// backupDirName is the sibling directory backups are written into.
const backupDirName = "Backups"

// backupTimestampFormat is fixed-width so backup names sort
// lexicographically in creation order.
const backupTimestampFormat = "20060102T150405.000000000"

// BackupMaker copies source files aside before a session mutates them and
// restores them on rollback.
type BackupMaker struct {
	clock func() time.Time
}

// NewBackupMaker creates a backup maker. A nil clock falls back to
// time.Now.
func NewBackupMaker(clock func() time.Time) *BackupMaker {
	if clock == nil {
		clock = time.Now
	}
	return &BackupMaker{clock: clock}
}

// Create copies the source file into its sibling Backups directory and
// returns the backup path:
// <dir-of-source>/Backups/<original-filename>.<timestamp>.bak
func (b *BackupMaker) Create(sourcePath string) (string, error) {
	dir := filepath.Dir(sourcePath)
	backupDir := filepath.Join(dir, backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", NewDocumentError("backup", sourcePath, err)
	}

	timestamp := b.clock().UTC().Format(backupTimestampFormat)
	backupPath := filepath.Join(backupDir, fmt.Sprintf("%s.%s.bak", filepath.Base(sourcePath), timestamp))

	if err := copyFile(sourcePath, backupPath); err != nil {
		return "", NewDocumentError("backup", sourcePath, err)
	}
	return backupPath, nil
}

// Restore copies a backup over the original path.
func (b *BackupMaker) Restore(backupPath, originalPath string) error {
	if backupPath == "" {
		return NewDocumentError("restore", originalPath, fmt.Errorf("no backup available"))
	}
	if _, err := os.Stat(backupPath); err != nil {
		return NewDocumentError("restore", originalPath, err)
	}
	if err := copyFile(backupPath, originalPath); err != nil {
		return NewDocumentError("restore", originalPath, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
