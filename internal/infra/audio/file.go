package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"voiceqa/internal/domain"
)

const processedSuffix = ".processed"

// Extensions accepted by the transcription service.
var supportedExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".mp4":  true,
	".mpeg": true,
	".mpga": true,
	".webm": true,
	".ogg":  true,
	".flac": true,
}

// IsSupported reports whether the file name has an audio extension the
// transcription service accepts.
func IsSupported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// LoadFile reads a single audio file into a clip named after the file.
func LoadFile(path string) (domain.AudioClip, error) {
	if !IsSupported(path) {
		return domain.AudioClip{}, fmt.Errorf("unsupported audio file %q: %w", filepath.Base(path), domain.ErrInvalidInput)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.AudioClip{}, fmt.Errorf("reading audio file: %w", err)
	}
	if len(data) == 0 {
		return domain.AudioClip{}, fmt.Errorf("empty audio file %q: %w", filepath.Base(path), domain.ErrInvalidInput)
	}

	return domain.AudioClip{Data: data, Filename: filepath.Base(path)}, nil
}

// FileSource watches a directory and yields each new audio file once. Picked
// files are renamed with a ".processed" suffix.
type FileSource struct {
	dir          string
	pollInterval time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	processed map[string]bool
}

func NewFileSource(dir string, pollInterval time.Duration, logger *slog.Logger) *FileSource {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &FileSource{
		dir:          dir,
		pollInterval: pollInterval,
		logger:       logger,
		processed:    make(map[string]bool),
	}
}

func (f *FileSource) Name() string {
	return "file"
}

func (f *FileSource) Start(_ context.Context) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating audio dir: %w", err)
	}
	return nil
}

func (f *FileSource) Stop() error {
	return nil
}

// NextClip blocks until a new file shows up or ctx is done.
func (f *FileSource) NextClip(ctx context.Context) (domain.AudioClip, error) {
	if clip, ok, err := f.checkForNewFile(); err != nil || ok {
		return clip, err
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.AudioClip{}, fmt.Errorf("%w: %w", domain.ErrCaptureCanceled, ctx.Err())
		case <-ticker.C:
			clip, ok, err := f.checkForNewFile()
			if err != nil {
				return domain.AudioClip{}, err
			}
			if ok {
				return clip, nil
			}
		}
	}
}

func (f *FileSource) checkForNewFile() (domain.AudioClip, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return domain.AudioClip{}, false, fmt.Errorf("reading dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(f.dir, name)
		if f.processed[path] {
			continue
		}

		clip, err := LoadFile(path)
		if err != nil {
			// Possibly still being written; try again on the next tick.
			f.logger.Debug("skipping audio file", "file", name, "error", err)
			continue
		}

		f.processed[path] = true
		if err := os.Rename(path, path+processedSuffix); err != nil {
			f.logger.Warn("marking audio file processed", "file", name, "error", err)
		}

		f.logger.Info("picked audio file", "file", name, "bytes", len(clip.Data))
		return clip, true, nil
	}

	return domain.AudioClip{}, false, nil
}
