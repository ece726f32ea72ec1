package nfwrap

import (
	"os"
	"path/filepath"

	"github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
)

// StageWorkdir mirrors source into dest.
// Entries whose base name is excluded are skipped at any depth.
// Symlinks are followed, dangling ones are skipped,
// and an existing dest is merged into rather than replaced.
func StageWorkdir(source, dest string, exclude []string) error {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[name] = true
	}
	root := filepath.Clean(source)
	opt := copy.Options{
		Skip: func(info os.FileInfo, src, dst string) (bool, error) {
			if filepath.Clean(src) == root {
				return false, nil
			}
			if excluded[filepath.Base(src)] {
				return true, nil
			}
			if info.Mode()&os.ModeSymlink != 0 {
				if _, err := os.Stat(src); err != nil {
					logrus.Debugf("skipping dangling symlink %v", src)
					return true, nil
				}
			}
			return false, nil
		},
		OnSymlink: func(string) copy.SymlinkAction {
			return copy.Deep
		},
		OnDirExists: func(src, dst string) copy.DirExistsAction {
			return copy.Merge
		},
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	return copy.Copy(source, dest, opt)
}
