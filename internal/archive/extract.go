package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	"github.com/klauspost/compress/zip"
)

// Options controls a single extraction.
type Options struct {
	// DeleteArchive removes the archive after a successful walk.
	DeleteArchive bool
	// PreferOTF keeps .otf files and drops .ttf files instead of the reverse.
	PreferOTF bool
	// Interactive asks about every file instead of filtering by extension.
	Interactive bool
}

// Config holds the collaborators of an Extractor.
type Config struct {
	// Fonts is the font root manager. Required.
	Fonts *fontdir.Manager
	// Platform decides permission restoration and ignored subtrees.
	// Defaults to the running OS.
	Platform *platform.Info
	// Lines answers interactive prompts. Required for Interactive.
	Lines LineSource
	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Extractor writes archive entries into font directories.
type Extractor struct {
	fonts    *fontdir.Manager
	platform *platform.Info
	lines    LineSource
	log      logging.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(cfg Config) (*Extractor, error) {
	if cfg.Fonts == nil {
		return nil, fmt.Errorf("font directory manager is required")
	}
	if cfg.Platform == nil {
		cfg.Platform = &platform.Info{OS: runtime.GOOS, ArchRaw: runtime.GOARCH}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Extractor{
		fonts:    cfg.Fonts,
		platform: cfg.Platform,
		lines:    cfg.Lines,
		log:      cfg.Logger,
	}, nil
}

// Extract installs the entries of the zip archive at archivePath into the
// directory of fontName and returns how many entries were written.
//
// On error the count reflects the entries written before the failure.
func (e *Extractor) Extract(archivePath, fontName string, opts Options) (int, error) {
	destRoot := e.fonts.Path(fontName)
	if !within(e.fonts.Root(), destRoot) {
		return 0, &ExtractError{Op: "resolve font directory", Path: destRoot, Err: errors.New("outside font root")}
	}

	filter, err := e.filter(opts)
	if err != nil {
		return 0, err
	}

	e.log.Debug("opening archive", "path", archivePath)
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, &ExtractError{Op: "open archive", Path: archivePath, Err: err}
	}

	installed, err := e.extractAll(r.File, destRoot, filter)
	closeErr := r.Close()
	if err != nil {
		return installed, err
	}
	if closeErr != nil {
		return installed, &ExtractError{Op: "close archive", Path: archivePath, Err: closeErr}
	}

	if opts.DeleteArchive {
		if err := os.Remove(archivePath); err != nil {
			return installed, &ExtractError{Op: "delete archive", Path: archivePath, Err: err}
		}
		e.log.Debug("archive deleted", "path", archivePath)
	}

	return installed, nil
}

func (e *Extractor) filter(opts Options) (Filter, error) {
	if !opts.Interactive {
		return ExtensionFilter{PreferOTF: opts.PreferOTF}, nil
	}
	if e.lines == nil {
		return nil, &ExtractError{Op: "prompt", Path: "", Err: errors.New("interactive mode needs a line source")}
	}
	return PromptFilter{Lines: e.lines, Logger: e.log}, nil
}

func (e *Extractor) extractAll(files []*zip.File, destRoot string, filter Filter) (int, error) {
	installed := 0

	for _, f := range files {
		entry, ok := newEntry(f)
		if !ok {
			e.log.Warn("skipping unsafe archive entry", "name", entry.Name)
			continue
		}

		dest := filepath.Join(destRoot, entry.Path)
		if !within(destRoot, dest) {
			e.log.Warn("skipping unsafe archive entry", "name", entry.Name)
			continue
		}

		if e.platform.IsIgnoredSubtree(entry.TopLevel()) {
			e.log.Info("ignored", "entry", entry.Name, "reason", "platform subtree")
			continue
		}

		if entry.IsDir {
			e.log.Info("extracting directory", "path", dest)
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return installed, &ExtractError{Op: "create directory", Path: dest, Err: err}
			}
		} else {
			include, err := filter.Include(entry)
			if err != nil {
				return installed, &ExtractError{Op: "prompt", Path: entry.Name, Err: err}
			}
			if !include {
				e.log.Info("ignored", "entry", entry.Name)
				continue
			}

			e.log.Info("extracting file", "path", dest, "bytes", entry.Size)
			if err := writeEntry(f, dest); err != nil {
				return installed, err
			}
		}

		if entry.HasMode && e.platform.SupportsFileModes() {
			if err := os.Chmod(dest, entry.Mode); err != nil {
				return installed, &ExtractError{Op: "set permissions", Path: dest, Err: err}
			}
		}

		installed++
	}

	return installed, nil
}

// writeEntry streams the decompressed contents of f to dest.
func writeEntry(f *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return &ExtractError{Op: "create parent directory", Path: dest, Err: err}
	}

	rc, err := f.Open()
	if err != nil {
		return &ExtractError{Op: "read entry", Path: f.Name, Err: err}
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return &ExtractError{Op: "create file", Path: dest, Err: err}
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return &ExtractError{Op: "write file", Path: dest, Err: err}
	}

	if err := out.Close(); err != nil {
		return &ExtractError{Op: "write file", Path: dest, Err: err}
	}
	return nil
}

// within reports whether path is strictly below root.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
