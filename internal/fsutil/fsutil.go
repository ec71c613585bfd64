// Package fsutil holds the small filesystem helpers shared by the download engine,
// archive extraction and the updater. Every helper is idempotent and keeps no state.
package fsutil

import (
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	unsafeBaseChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	unsafeExtChars  = regexp.MustCompile(`[^a-zA-Z0-9.]`)
	repeatedUnders  = regexp.MustCompile(`_+`)
	envPlaceholder  = regexp.MustCompile(`%([^%]+)%`)
	alnumExt        = regexp.MustCompile(`^\.[a-zA-Z0-9]+$`)
)

// SanitizeFilename reduces name to [A-Za-z0-9_-] plus a cleaned extension.
// Runs of replaced characters collapse to one underscore and an empty result becomes "unnamed".
func SanitizeFilename(name string) string {
	name = filepath.Base(filepath.ToSlash(name))
	if name == "." || name == "/" {
		name = ""
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	cleanedBase := unsafeBaseChars.ReplaceAllString(base, "_")
	cleanedBase = repeatedUnders.ReplaceAllString(cleanedBase, "_")
	cleanedBase = strings.Trim(cleanedBase, "_")

	cleanedExt := unsafeExtChars.ReplaceAllString(ext, "")
	if cleanedExt == "." {
		cleanedExt = ""
	}

	if cleanedBase == "" {
		cleanedBase = "unnamed"
	}
	return cleanedBase + cleanedExt
}

// ExtFromURL returns the extension of the last path segment of rawURL, including the dot,
// or "" when there is none.
func ExtFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	ext := path.Ext(p)
	if !alnumExt.MatchString(ext) {
		return ""
	}
	return ext
}

// FilenameFromURL returns the unescaped last path segment of rawURL.
func FilenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return ""
	}
	return name
}

// RemoveFileIfExists deletes a file. A missing file is not an error; other failures are returned.
func RemoveFileIfExists(p string) error {
	if p == "" {
		return nil
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// TryRemoveFile is the best-effort variant of RemoveFileIfExists for exit paths.
func TryRemoveFile(p string) {
	_ = RemoveFileIfExists(p)
}

// RemoveDirIfExists recursively deletes a directory. A missing directory is not an error.
func RemoveDirIfExists(p string) error {
	if p == "" {
		return nil
	}
	return os.RemoveAll(p)
}

// TryRemoveDir is the best-effort variant of RemoveDirIfExists for exit paths.
func TryRemoveDir(p string) {
	_ = RemoveDirIfExists(p)
}

// SpaceAlias returns p with underscores replaced by spaces. Extraction tools and users
// sometimes produce the spaced variant of a sanitized name.
func SpaceAlias(p string) string {
	return strings.ReplaceAll(p, "_", " ")
}

// CleanupExtractDirs removes the directory named after finalName's basename inside
// parentDir, along with its space alias.
func CleanupExtractDirs(finalName, parentDir string) {
	base := strings.TrimSuffix(filepath.Base(finalName), filepath.Ext(finalName))
	if base == "" {
		return
	}
	dir := filepath.Join(parentDir, base)
	TryRemoveDir(dir)
	if alt := filepath.Join(parentDir, SpaceAlias(base)); alt != dir {
		TryRemoveDir(alt)
	}
}

// EnsureDir creates p and its parents.
func EnsureDir(p string) error {
	return os.MkdirAll(p, 0o755)
}

// ExpandEnv replaces %NAME% placeholders from the process environment.
// Placeholders naming unset variables are left untouched.
func ExpandEnv(input string) string {
	return envPlaceholder.ReplaceAllStringFunc(input, func(match string) string {
		name := match[1 : len(match)-1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return match
	})
}

// DownloadsDir returns the per-user downloads directory, falling back to the temp dir.
func DownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(home, "Downloads")
}

// CopyFile copies src to dst, creating dst's parent directory.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Exists reports whether p exists.
func Exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
