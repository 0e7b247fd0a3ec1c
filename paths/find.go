// Package paths locates auxiliary files, such as the configuration file, in
// the places a user would expect them.
package paths

import (
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Dirs returns the directories searched by Find, in order: the working
// directory, $XDG_CONFIG_HOME/spritesplit, $HOME/.config/spritesplit and the
// directory containing the running binary.
func Dirs() []string {
	dirs := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "spritesplit"))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "spritesplit"))
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return dirs
}

func possiblePaths(fileName string) []string {
	if filepath.IsAbs(fileName) {
		return []string{fileName}
	}
	var paths []string
	for _, dir := range Dirs() {
		paths = append(paths, filepath.Join(dir, fileName))
	}
	return paths
}

// Find locates the passed file shortname and returns an absolute or relative
// path to find it at, or an empty string if it is in none of Dirs.
//
// For example, for "spritesplit.yaml" it may return
// "/home/user/.config/spritesplit/spritesplit.yaml".
func Find(fileName string) string {
	for _, path := range possiblePaths(fileName) {
		if st, err := os.Stat(path); err == nil && !st.IsDir() {
			glog.Infof("paths.Find(%q)=%s", fileName, path)
			return path
		}
	}
	return ""
}

// Open locates the passed file in the same locations that Find would look, and
// opens it. If Find returns an empty string, an error is returned.
func Open(fileName string) (io.ReadCloser, error) {
	path := Find(fileName)
	if path == "" {
		return nil, errors.Wrapf(os.ErrNotExist, "paths.Open(%q)", fileName)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q)", fileName)
	}
	return f, nil
}
