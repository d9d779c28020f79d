package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/download"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontcache"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/ZebulonRouseFrantzich/fontman/internal/lock"
	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
	"github.com/ZebulonRouseFrantzich/fontman/internal/source"
	"github.com/ZebulonRouseFrantzich/fontman/internal/verify"
)

// AggregatorArchiveName is the file aggregator archives are downloaded to.
const AggregatorArchiveName = "font.zip"

// Config holds the collaborators of a Service.
type Config struct {
	Catalog    Catalog
	Fonts      *fontdir.Manager
	Extractor  Extractor
	Downloader Downloader
	// Verifier defaults to verify.NewVerifier.
	Verifier Verifier
	// Refresher defaults to a fc-cache refresher.
	Refresher fontcache.Refresher
	// DownloadDir receives fetched archives. Defaults to the working directory.
	DownloadDir string
	Logger      logging.Logger
}

// Service installs and uninstalls fonts.
type Service struct {
	catalog     Catalog
	fonts       *fontdir.Manager
	extractor   Extractor
	downloader  Downloader
	verifier    Verifier
	refresher   fontcache.Refresher
	downloadDir string
	log         logging.Logger
}

// NewService creates a service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if cfg.Fonts == nil {
		return nil, fmt.Errorf("font directory manager is required")
	}
	if cfg.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Downloader == nil {
		cfg.Downloader = download.NewDownloader(download.Config{Logger: cfg.Logger})
	}
	if cfg.Verifier == nil {
		cfg.Verifier = verify.NewVerifier(cfg.Logger)
	}
	if cfg.Refresher == nil {
		cfg.Refresher = fontcache.New(fontcache.Config{Logger: cfg.Logger})
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "."
	}

	return &Service{
		catalog:     cfg.Catalog,
		fonts:       cfg.Fonts,
		extractor:   cfg.Extractor,
		downloader:  cfg.Downloader,
		verifier:    cfg.Verifier,
		refresher:   cfg.Refresher,
		downloadDir: cfg.DownloadDir,
		log:         cfg.Logger,
	}, nil
}

// plan is the local archive and target directory for a source.
type plan struct {
	url         string // empty for local archives
	archivePath string
	fontName    string
	opts        Options
	scratch     bool // archivePath is removed even when extraction never completes
}

// Install extracts the archive behind src into its font directory and
// refreshes the font cache. When the archive contributed nothing it returns the
// Result together with ErrFontsIgnored.
func (s *Service) Install(ctx context.Context, src source.Source, opts Options) (*Result, error) {
	s.advance(StateReceived, "source", src)
	if src == nil {
		return nil, fmt.Errorf("install: no source")
	}

	p, err := s.plan(src, opts)
	if err != nil {
		return nil, err
	}
	s.advance(StateValidated, "font", p.fontName, "archive", p.archivePath)

	l, err := lock.Acquire(ctx, s.fonts.Root())
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	defer s.release(l)

	if p.url != "" {
		s.advance(StateDownloading, "url", p.url)
		if err := s.downloader.DownloadToFile(ctx, p.url, p.archivePath); err != nil {
			return nil, fmt.Errorf("download %s: %w", p.url, err)
		}
	}

	if !p.opts.Verify.Empty() {
		s.advance(StateVerifying, "archive", p.archivePath)
		if err := s.verifier.Verify(p.archivePath, p.opts.Verify); err != nil {
			s.discard(p)
			return nil, err
		}
	}

	s.advance(StateExtracting, "archive", p.archivePath, "font", p.fontName)
	count, err := s.extractor.Extract(p.archivePath, p.fontName, p.opts.Extract)
	if err != nil {
		s.discard(p)
		return nil, fmt.Errorf("extract %s: %w", p.archivePath, err)
	}
	s.advance(StateCounted, "installed", count)

	result := &Result{
		Source:    src,
		FontName:  p.fontName,
		Directory: s.fonts.Path(p.fontName),
		Installed: count,
	}

	if count == 0 {
		result.State = StateFontsIgnored
		s.advance(result.State, "font", p.fontName)
		return result, ErrFontsIgnored
	}

	s.refresher.Refresh(ctx)
	result.State = StateSucceeded
	s.advance(result.State, "font", p.fontName, "installed", count)
	return result, nil
}

func (s *Service) plan(src source.Source, opts Options) (plan, error) {
	switch src := src.(type) {
	case source.Aggregator:
		opts.Extract.DeleteArchive = true
		return plan{
			url:         s.catalog.ArchiveURL(src.Name),
			archivePath: filepath.Join(s.downloadDir, AggregatorArchiveName),
			fontName:    s.catalog.DirectoryName(src.Name),
			opts:        opts,
			scratch:     true,
		}, nil

	case source.Remote:
		file, err := download.FileName(src.URL)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %s: %v", ErrInvalidPath, src.URL, err)
		}
		if filepath.Base(file) != file {
			return plan{}, fmt.Errorf("%w: %s", ErrInvalidPath, src.URL)
		}
		name, err := stem(file)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %s", err, src.URL)
		}
		return plan{
			url:         src.URL,
			archivePath: filepath.Join(s.downloadDir, file),
			fontName:    name,
			opts:        opts,
		}, nil

	case source.Local:
		name, err := stem(src.Path)
		if err != nil {
			return plan{}, fmt.Errorf("%w: %s", err, src.Path)
		}
		return plan{archivePath: src.Path, fontName: name, opts: opts}, nil

	default:
		return plan{}, fmt.Errorf("install: unsupported source %T", src)
	}
}

// stem returns the base name of path without its extension.
func stem(path string) (string, error) {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", ErrInvalidPath
	}
	return name, nil
}

// Uninstall removes the font directory named by name, which may be an
// aggregator font name or a directory name, and returns its path.
func (s *Service) Uninstall(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("uninstall: %w", ErrInvalidPath)
	}

	dir, aggregator := s.catalog.Resolve(name)
	s.log.Debug("resolved font directory", "name", name, "dir", dir, "aggregator", aggregator)

	l, err := lock.Acquire(ctx, s.fonts.Root())
	if err != nil {
		return "", fmt.Errorf("acquire lock: %w", err)
	}
	defer s.release(l)

	if err := s.fonts.Remove(dir); err != nil {
		return "", fmt.Errorf("uninstall %s: %w", name, err)
	}
	s.log.Info("removed font directory", "path", s.fonts.Path(dir))

	s.refresher.Refresh(ctx)
	return s.fonts.Path(dir), nil
}

// Installed lists the font directories under the font root.
func (s *Service) Installed() ([]fontdir.Installed, error) {
	return s.fonts.List()
}

func (s *Service) advance(state State, keysAndValues ...interface{}) {
	s.log.Debug("install "+string(state), keysAndValues...)
}

func (s *Service) release(l *lock.Lock) {
	path := l.Path()
	if err := l.Release(); err != nil {
		s.log.Warn("failed to release lock", "path", path, "error", err)
	}
}

// discard removes a scratch archive left behind by a failed install.
func (s *Service) discard(p plan) {
	if !p.scratch {
		return
	}
	if err := os.Remove(p.archivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("failed to remove archive", "path", p.archivePath, "error", err)
	}
}
