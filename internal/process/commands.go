package process

import (
	"path/filepath"
	"runtime"
)

var goos = runtime.GOOS

func shellCommand(path string, args []string) (string, []string) {
	if goos == "windows" {
		return "cmd", append([]string{"/C", "start", "", path}, args...)
	}
	return "sh", append([]string{"-c", `exec "$0" "$@"`, path}, args...)
}

func revealCommand(path string) (string, []string) {
	switch goos {
	case "windows":
		return "explorer", []string{"/select," + path}
	case "darwin":
		return "open", []string{"-R", path}
	default:
		return "xdg-open", []string{filepath.Dir(path)}
	}
}

func openCommand(path string) (string, []string) {
	switch goos {
	case "windows":
		return "cmd", []string{"/C", "start", "", path}
	case "darwin":
		return "open", []string{path}
	default:
		return "xdg-open", []string{path}
	}
}
