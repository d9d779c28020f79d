// Package download fetches remote font archives.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
	"github.com/google/uuid"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 5 * time.Minute
	// MaxRedirects is the number of redirects followed before giving up.
	// Aggregator release assets redirect to a CDN.
	MaxRedirects = 10
)

// ErrNoFileName is returned when a URL has no usable last path segment.
var ErrNoFileName = errors.New("URL has no file name")

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Config configures a Downloader.
type Config struct {
	// Client defaults to an http.Client with DefaultTimeout.
	Client *http.Client
	// UserAgent defaults to "fontman".
	UserAgent string
	Logger    logging.Logger
}

// Downloader writes the body of a URL to a file. It makes a single attempt.
type Downloader struct {
	client    *http.Client
	userAgent string
	log       logging.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(cfg Config) *Downloader {
	if cfg.Client == nil {
		cfg.Client = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "fontman"
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Downloader{client: cfg.Client, userAgent: cfg.UserAgent, log: cfg.Logger}
}

// DownloadToFile fetches rawURL into destPath. The body is written to a
// uniquely named sibling file first and renamed into place, so destPath
// never holds a partial download.
func (d *Downloader) DownloadToFile(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	d.log.Info("downloading", "url", rawURL, "dest", destPath)
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + "." + uuid.NewString() + ".part"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	renamed := false
	defer func() {
		tmpFile.Close()
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	renamed = true

	d.log.Debug("download complete", "dest", destPath, "bytes", n)
	return nil
}

// FileName returns the last path segment of rawURL, ignoring any query or
// fragment.
func FileName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	p := u.EscapedPath()
	if p == "" || p[len(p)-1] == '/' {
		return "", ErrNoFileName
	}
	name, err := url.PathUnescape(path.Base(p))
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrNoFileName
	}
	return name, nil
}
