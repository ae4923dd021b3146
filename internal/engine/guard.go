package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// protectedRoots are paths the pipeline refuses to operate on. The run
// rewrites files in place, so pointing it at a system tree would be
// destructive.
var protectedRoots = []string{
	"/", "/bin", "/boot", "/dev", "/etc", "/lib", "/lib64",
	"/proc", "/run", "/sbin", "/sys", "/usr", "/var",
}

// checkFolder validates the input folder before any work begins: it
// must exist, be a directory, be writable, and not be (or live under)
// a protected system root.
func checkFolder(folder string) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return fmt.Errorf("resolve folder: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("input folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("input folder %s is not a directory", abs)
	}

	if root := protectedRoot(abs); root != "" {
		return fmt.Errorf("refusing to operate on protected system path %s (under %s)", abs, root)
	}

	if err := unix.Access(abs, unix.W_OK); err != nil {
		return fmt.Errorf("input folder %s is not writable: %w", abs, err)
	}
	return nil
}

// protectedRoot returns the protected root the path falls under, or "".
// Home-relative trees are never protected even when the mount lives
// under /var or similar via symlinks; only the literal path is judged.
func protectedRoot(abs string) string {
	clean := filepath.Clean(abs)
	for _, root := range protectedRoots {
		if clean == root {
			return root
		}
		if root != "/" && strings.HasPrefix(clean, root+string(filepath.Separator)) {
			// Allow scratch areas that happen to live under /var.
			if strings.HasPrefix(clean, "/var/tmp/") || strings.HasPrefix(clean, "/var/folders/") {
				continue
			}
			return root
		}
	}
	return ""
}
