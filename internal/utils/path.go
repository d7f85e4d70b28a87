package utils

import (
	"path"
	"path/filepath"
	"strings"
)

// NormalizeRemotePath turns user input into a clean absolute remote path.
// Backslashes become slashes, "~" and relative paths resolve against home.
func NormalizeRemotePath(p, home string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	home = strings.ReplaceAll(home, "\\", "/")
	if home == "" {
		home = "/"
	}

	switch {
	case p == "" || p == "~":
		p = home
	case strings.HasPrefix(p, "~/"):
		p = path.Join(home, p[2:])
	case !strings.HasPrefix(p, "/"):
		p = path.Join(home, p)
	}
	return path.Clean(p)
}

// LocalDownloadPath picks where a remote file lands locally. An empty or
// directory destination keeps the remote file name.
func LocalDownloadPath(remotePath, dest string, destIsDir bool) string {
	name := path.Base(strings.ReplaceAll(remotePath, "\\", "/"))
	if dest == "" {
		return name
	}
	if destIsDir || strings.HasSuffix(dest, string(filepath.Separator)) {
		return filepath.Join(dest, name)
	}
	return filepath.FromSlash(dest)
}
