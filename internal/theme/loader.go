package theme

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
)

const themeExt = ".theme"

// ErrNotFound is returned when no search location has the requested theme.
var ErrNotFound = errors.New("theme not found")

// Loader resolves theme names. Explicit paths win, then the themes built
// into the binary, then ConfigDir and SystemDir in that order.
type Loader struct {
	ConfigDir string
	SystemDir string
}

// NewLoader returns a Loader using ~/.config/instructsheet/themes and the
// shared system directory.
func NewLoader() *Loader {
	l := &Loader{SystemDir: "/usr/share/instructsheet/themes"}
	if home, err := homedir.Dir(); err == nil {
		l.ConfigDir = filepath.Join(home, ".config", "instructsheet", "themes")
	}
	return l
}

// searchPath lists the file systems consulted for a bare theme name.
func (l *Loader) searchPath() []fs.FS {
	dirs := []fs.FS{mustSub(EmbeddedThemes, "defaults")}
	for _, d := range []string{l.ConfigDir, l.SystemDir} {
		if d != "" {
			dirs = append(dirs, os.DirFS(d))
		}
	}
	return dirs
}

// Load returns the theme called name, which may also be a path to a theme
// file. An empty name gives Default.
func (l *Loader) Load(name string) (*Theme, error) {
	if name == "" {
		return Default(), nil
	}
	if p, err := homedir.Expand(name); err == nil {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return readFrom(os.DirFS(filepath.Dir(p)), filepath.Base(p), p)
		}
	}

	file := strings.ToLower(name)
	if path.Ext(file) != themeExt {
		file += themeExt
	}
	for _, fsys := range l.searchPath() {
		t, err := readFrom(fsys, file, file)
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			continue
		}
		return t, err
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Names lists the themes built into the binary.
func Names() []string {
	files, _ := fs.Glob(EmbeddedThemes, "defaults/*"+themeExt)
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, strings.TrimSuffix(path.Base(f), themeExt))
	}
	sort.Strings(names)
	return names
}

func readFrom(fsys fs.FS, file, label string) (*Theme, error) {
	f, err := fsys.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return t, nil
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
