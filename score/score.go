// Package score keeps the high score in a one line text file.
package score

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
)

const DefaultPath = "./highscore.txt"

// ErrMissingScoreFile is returned when the score file does not exist. There is
// no fallback value: the file has to be created before the game starts.
var ErrMissingScoreFile = errors.New("missing score file")

// ParseError is returned when the first line of the file is not an integer.
type ParseError struct {
	Path string
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse score file %s: invalid score %q: %v", e.Path, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Store reads and writes the high score.
type Store interface {
	Load() (int, error)
	// Save records score if it beats the stored value.
	Save(score int) error
}

type File struct {
	path string
}

func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

func (f *File) Load() (int, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrMissingScoreFile, f.path)
		}
		return 0, fmt.Errorf("failed to open score file: %w", err)
	}
	defer file.Close()

	var line string
	sc := bufio.NewScanner(file)
	if sc.Scan() {
		line = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("failed to read score file: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, &ParseError{Path: f.path, Line: line, Err: err}
	}
	return n, nil
}

// Save rewrites the file with the larger of score and the stored value.
func (f *File) Save(score int) error {
	stored, err := f.Load()
	if err != nil {
		return err
	}
	best := max(score, stored)
	if err := os.WriteFile(f.path, []byte(strconv.Itoa(best)), 0o644); err != nil {
		return fmt.Errorf("failed to write score file: %w", err)
	}
	return nil
}

// Init creates the score file with a zero score when it does not exist yet.
func (f *File) Init() error {
	file, err := os.OpenFile(f.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("failed to create score file: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString("0"); err != nil {
		return fmt.Errorf("failed to write score file: %w", err)
	}
	return nil
}

// Watch calls fn with the stored score every time the file is written, until
// ctx is done. A trainer and a player sharing one file see each other's records.
func (f *File) Watch(ctx context.Context, logger *slog.Logger, fn func(int)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// editors and os.WriteFile may replace the file, so watch its directory.
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.path, err)
	}
	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			n, err := f.Load()
			if err != nil {
				// a write may be observed half way; the next event carries the full value.
				logger.Debug("unable to reload score file", slog.String("error", err.Error()))
				continue
			}
			fn(n)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("score watcher error", slog.String("error", err.Error()))
		}
	}
}
