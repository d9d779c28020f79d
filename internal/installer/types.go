// Package installer turns a validated install source into an installed
// font directory, and removes font directories again.
package installer

import (
	"context"
	"errors"

	"github.com/ZebulonRouseFrantzich/fontman/internal/archive"
	"github.com/ZebulonRouseFrantzich/fontman/internal/source"
	"github.com/ZebulonRouseFrantzich/fontman/internal/verify"
)

var (
	// ErrInvalidPath is returned when an archive path or URL yields no
	// usable font name.
	ErrInvalidPath = errors.New("invalid archive path")
	// ErrFontsIgnored is returned when extraction wrote nothing.
	ErrFontsIgnored = errors.New("every file in the archive was ignored, no fonts installed")
)

// State is a step of an install request.
type State string

const (
	StateReceived     State = "received"
	StateValidated    State = "validated"
	StateDownloading  State = "downloading"
	StateVerifying    State = "verifying"
	StateExtracting   State = "extracting"
	StateCounted      State = "counted"
	StateSucceeded    State = "succeeded"
	StateFontsIgnored State = "fonts-ignored"
)

// Options are the caller's choices for one install.
type Options struct {
	Extract archive.Options
	Verify  verify.Expectation
}

// Result describes a finished install.
type Result struct {
	Source    source.Source
	FontName  string
	Directory string
	Installed int
	State     State
}

// Downloader fetches a URL into a file.
type Downloader interface {
	DownloadToFile(ctx context.Context, url, destPath string) error
}

// Extractor installs an archive into a font directory.
type Extractor interface {
	Extract(archivePath, fontName string, opts archive.Options) (int, error)
}

// Verifier checks an archive before extraction.
type Verifier interface {
	Verify(archivePath string, exp verify.Expectation) error
}

// Catalog is the part of the font catalog the installer needs.
type Catalog interface {
	ArchiveURL(name string) string
	DirectoryName(name string) string
	Resolve(name string) (dir string, aggregator bool)
}
