// Package fixture loads tabular test data from delimited text files.
//
// A fixture is read whole and parsed into ordered Records keyed by the
// header row:
//
//	users, err := fixture.LoadSync("data/login-data.csv")
//	if err != nil {
//	    t.Fatal(err)
//	}
//	for _, u := range users {
//	    login(u.Value("username"), u.Value("password"))
//	}
//
// Relative paths resolve against the loader's root, which defaults to the
// module root. Every failure is a *LoadError naming the path.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var drivePrefix = regexp.MustCompile(`^[A-Za-z]:`)

// DefaultLoader backs the package-level Load and LoadSync.
var DefaultLoader = &Loader{}

// Loader reads fixtures relative to Root.
type Loader struct {
	// Root anchors relative paths. Empty means ProjectRoot().
	Root string
	// ReadFile reads a whole file. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
	Logger   *slog.Logger
}

func New(root string) *Loader {
	return &Loader{Root: root}
}

// ProjectRoot returns the directory holding this module's go.mod. Builds
// whose source path no longer exists (-trimpath, module cache) fall back to
// the working directory.
func ProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	return projectRoot(filename)
}

func projectRoot(sourceFile string) string {
	if sourceFile != "" {
		root := filepath.Clean(filepath.Join(filepath.Dir(sourceFile), "..", ".."))
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root
		}
	}
	wd, _ := os.Getwd()
	return wd
}

func Load(ctx context.Context, path string, opts ...Option) ([]Record, error) {
	return DefaultLoader.Load(ctx, path, opts...)
}

func LoadSync(path string, opts ...Option) ([]Record, error) {
	return DefaultLoader.LoadSync(path, opts...)
}

// Resolve returns the file a path refers to.
func (l *Loader) Resolve(path string) string {
	if isAbsolute(path) {
		return path
	}
	return filepath.Join(l.root(), path)
}

// LoadSync reads and parses the fixture on the calling goroutine.
func (l *Loader) LoadSync(path string, opts ...Option) ([]Record, error) {
	if path == "" {
		return nil, &LoadError{Err: ErrEmptyPath}
	}
	resolved := l.Resolve(path)
	data, err := l.read(resolved)
	if err != nil {
		return nil, &LoadError{Path: path, Resolved: resolved, Err: err}
	}
	return l.decode(path, resolved, data, opts)
}

// Load reads the fixture on a separate goroutine and returns early with
// the context error if ctx is done before the read completes. Parsing is
// identical to LoadSync.
func (l *Loader) Load(ctx context.Context, path string, opts ...Option) ([]Record, error) {
	if path == "" {
		return nil, &LoadError{Err: ErrEmptyPath}
	}
	resolved := l.Resolve(path)
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Resolved: resolved, Err: err}
	}

	type readResult struct {
		data []byte
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		data, err := l.read(resolved)
		done <- readResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, &LoadError{Path: path, Resolved: resolved, Err: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return nil, &LoadError{Path: path, Resolved: resolved, Err: res.err}
		}
		return l.decode(path, resolved, res.data, opts)
	}
}

func (l *Loader) decode(path, resolved string, data []byte, opts []Option) ([]Record, error) {
	records, err := parse(data, resolveOptions(opts))
	if err != nil {
		return nil, &LoadError{Path: path, Resolved: resolved, Err: err}
	}
	l.logger().Debug("fixture loaded", "path", path, "resolved", resolved, "records", len(records))
	return records, nil
}

func (l *Loader) read(name string) ([]byte, error) {
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	data, err := readFile(name)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return nil, err
	}
}

func (l *Loader) root() string {
	if l.Root != "" {
		return l.Root
	}
	return ProjectRoot()
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func isAbsolute(path string) bool {
	return filepath.IsAbs(path) || strings.HasPrefix(path, "/") || drivePrefix.MatchString(path)
}
