package engine

import (
	"fmt"
	"os"
	"path/filepath"
)

// Folder names generated under the input folder. They are pruned from
// discovery so later runs never re-process generated artifacts.
const (
	TempDirName   = "temp_translated"
	BackupDirName = "backup"
	DestDirName   = "translated"

	// StoreFileName is the fingerprint store persisted in the input
	// folder, named for compatibility with earlier versions of the tool.
	StoreFileName = "translated_files.json"

	// BackupSuffix is appended to each backed-up original.
	BackupSuffix = ".bak"

	lockFileName = ".subtrans.lock"
)

// reservedDirs are excluded from traversal.
var reservedDirs = map[string]struct{}{
	TempDirName:   {},
	BackupDirName: {},
	DestDirName:   {},
}

// layout resolves every generated path for one run rooted at the input
// folder.
type layout struct {
	root      string
	overwrite bool
}

func newLayout(root string, overwrite bool) layout {
	return layout{root: root, overwrite: overwrite}
}

func (l layout) tempDir() string   { return filepath.Join(l.root, TempDirName) }
func (l layout) backupDir() string { return filepath.Join(l.root, BackupDirName) }
func (l layout) destDir() string   { return filepath.Join(l.root, DestDirName) }
func (l layout) storePath() string { return filepath.Join(l.root, StoreFileName) }
func (l layout) lockPath() string  { return filepath.Join(l.root, lockFileName) }

// tempPath mirrors rel inside the temp folder.
func (l layout) tempPath(rel string) string {
	return filepath.Join(l.tempDir(), rel)
}

// backupPath mirrors rel inside the backup folder, with the backup suffix.
func (l layout) backupPath(rel string) string {
	return filepath.Join(l.backupDir(), rel+BackupSuffix)
}

// finalPath is where a translated file ends up: over the original in
// overwrite mode, inside the destination folder otherwise.
func (l layout) finalPath(rel string) string {
	if l.overwrite {
		return filepath.Join(l.root, rel)
	}
	return filepath.Join(l.destDir(), rel)
}

// prepare creates the generated folders a run needs.
func (l layout) prepare() error {
	if err := os.MkdirAll(l.tempDir(), 0755); err != nil {
		return fmt.Errorf("create temp folder: %w", err)
	}
	if l.overwrite {
		if err := os.MkdirAll(l.backupDir(), 0755); err != nil {
			return fmt.Errorf("create backup folder: %w", err)
		}
		return nil
	}
	if err := os.MkdirAll(l.destDir(), 0755); err != nil {
		return fmt.Errorf("create destination folder: %w", err)
	}
	return nil
}

// purgeTemp removes the temp folder; called at run end regardless of
// outcome.
func (l layout) purgeTemp() error {
	return os.RemoveAll(l.tempDir())
}
