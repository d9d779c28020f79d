package installer

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/fontman/internal/archive"
	"github.com/ZebulonRouseFrantzich/fontman/internal/catalog"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontdir"
	"github.com/ZebulonRouseFrantzich/fontman/internal/lock"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	"github.com/ZebulonRouseFrantzich/fontman/internal/source"
	"github.com/ZebulonRouseFrantzich/fontman/internal/verify"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linux = &platform.Info{OS: "linux", Arch: "amd64"}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(fw, body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

// fakeDownloader serves a prepared archive for any URL.
type fakeDownloader struct {
	archive string
	urls    []string
	dests   []string
	err     error
}

func (d *fakeDownloader) DownloadToFile(ctx context.Context, url, dest string) error {
	d.urls = append(d.urls, url)
	d.dests = append(d.dests, dest)
	if d.err != nil {
		return d.err
	}
	data, err := os.ReadFile(d.archive)
	if err != nil {
		return err
	}
	return os.WriteFile(dest, data, 0o644)
}

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh(ctx context.Context) { r.calls++ }

type fixture struct {
	svc        *Service
	fonts      *fontdir.Manager
	downloader *fakeDownloader
	refresher  *countingRefresher
	downloads  string
	archive    string
}

func newFixture(t *testing.T, files map[string]string) fixture {
	t.Helper()
	tmp := t.TempDir()

	cat, err := catalog.Load(context.Background(), platform.Static{Info: linux})
	require.NoError(t, err)

	fonts := fontdir.New(filepath.Join(tmp, "home", ".fonts"))
	ex, err := archive.NewExtractor(archive.Config{Fonts: fonts, Platform: linux})
	require.NoError(t, err)

	served := filepath.Join(tmp, "served", "archive.zip")
	writeZip(t, served, files)

	fx := fixture{
		fonts:      fonts,
		downloader: &fakeDownloader{archive: served},
		refresher:  &countingRefresher{},
		downloads:  filepath.Join(tmp, "downloads"),
		archive:    served,
	}
	require.NoError(t, os.MkdirAll(fx.downloads, 0o755))

	fx.svc, err = NewService(Config{
		Catalog:     cat,
		Fonts:       fonts,
		Extractor:   ex,
		Downloader:  fx.downloader,
		Refresher:   fx.refresher,
		DownloadDir: fx.downloads,
	})
	require.NoError(t, err)
	return fx
}

var fontFiles = map[string]string{
	"Regular.ttf": "ttf",
	"Regular.otf": "otf",
	"LICENSE":     "license",
}

func TestInstall_Aggregator(t *testing.T) {
	fx := newFixture(t, fontFiles)

	res, err := fx.svc.Install(context.Background(), source.Aggregator{Name: "FiraCode"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"https://github.com/ryanoasis/nerd-fonts/releases/download/v3.2.1/FiraCode.zip"}, fx.downloader.urls)
	assert.Equal(t, []string{filepath.Join(fx.downloads, "font.zip")}, fx.downloader.dests)

	assert.Equal(t, "FiraCodeNerdFont", res.FontName)
	assert.Equal(t, fx.fonts.Path("FiraCodeNerdFont"), res.Directory)
	assert.Equal(t, 2, res.Installed)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, source.Aggregator{Name: "FiraCode"}, res.Source)

	assert.FileExists(t, filepath.Join(res.Directory, "Regular.ttf"))
	assert.NoFileExists(t, filepath.Join(fx.downloads, "font.zip"), "aggregator archive is always deleted")
	assert.Equal(t, 1, fx.refresher.calls)
	assert.NoFileExists(t, filepath.Join(fx.fonts.Root(), lock.FileName), "lock released")
}

func TestInstall_Local(t *testing.T) {
	fx := newFixture(t, fontFiles)
	local := filepath.Join(t.TempDir(), "Hack.zip")
	writeZip(t, local, fontFiles)

	res, err := fx.svc.Install(context.Background(), source.Local{Path: local}, Options{})
	require.NoError(t, err)

	assert.Empty(t, fx.downloader.urls, "local installs never download")
	assert.Equal(t, "Hack", res.FontName)
	assert.Equal(t, 2, res.Installed)
	assert.FileExists(t, filepath.Join(fx.fonts.Path("Hack"), "Regular.ttf"))
	assert.FileExists(t, filepath.Join(fx.fonts.Path("Hack"), "LICENSE"))
	assert.NoFileExists(t, filepath.Join(fx.fonts.Path("Hack"), "Regular.otf"))
	assert.FileExists(t, local, "archive kept without delete option")
}

func TestInstall_LocalDeleteArchive(t *testing.T) {
	fx := newFixture(t, fontFiles)
	local := filepath.Join(t.TempDir(), "Hack.zip")
	writeZip(t, local, fontFiles)

	_, err := fx.svc.Install(context.Background(), source.Local{Path: local}, Options{
		Extract: archive.Options{DeleteArchive: true, PreferOTF: true},
	})
	require.NoError(t, err)
	assert.NoFileExists(t, local)
	assert.FileExists(t, filepath.Join(fx.fonts.Path("Hack"), "Regular.otf"))
}

func TestInstall_Remote(t *testing.T) {
	fx := newFixture(t, fontFiles)

	res, err := fx.svc.Install(context.Background(), source.Remote{URL: "https://example.com/dl/Iosevka.zip?x=1"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{filepath.Join(fx.downloads, "Iosevka.zip")}, fx.downloader.dests)
	assert.Equal(t, "Iosevka", res.FontName)
	assert.FileExists(t, filepath.Join(fx.downloads, "Iosevka.zip"), "remote archive kept without delete option")
}

func TestInstall_InvalidPath(t *testing.T) {
	fx := newFixture(t, fontFiles)

	for _, src := range []source.Source{
		source.Remote{URL: "https://example.com/"},
		source.Remote{URL: "https://example.com/.zip"},
		source.Remote{URL: "https://example.com/x/..%2Fescaped.zip"},
		source.Local{Path: "/"},
		source.Local{Path: ".zip"},
	} {
		_, err := fx.svc.Install(context.Background(), src, Options{})
		assert.ErrorIs(t, err, ErrInvalidPath, "%v", src)
	}
	assert.Empty(t, fx.downloader.urls)
	assert.NoDirExists(t, fx.fonts.Root(), "nothing touched before validation passes")
	assert.NoFileExists(t, filepath.Join(filepath.Dir(fx.downloads), "escaped.zip"))
}

func TestInstall_FontsIgnored(t *testing.T) {
	fx := newFixture(t, map[string]string{"Only.otf": "otf"})
	local := filepath.Join(t.TempDir(), "OtfOnly.zip")
	writeZip(t, local, map[string]string{"Only.otf": "otf"})

	res, err := fx.svc.Install(context.Background(), source.Local{Path: local}, Options{})
	assert.ErrorIs(t, err, ErrFontsIgnored)
	require.NotNil(t, res)
	assert.Equal(t, StateFontsIgnored, res.State)
	assert.Zero(t, res.Installed)
	assert.Zero(t, fx.refresher.calls, "no refresh when nothing was installed")
}

func TestInstall_DownloadFailure(t *testing.T) {
	fx := newFixture(t, fontFiles)
	fx.downloader.err = errors.New("connection refused")

	_, err := fx.svc.Install(context.Background(), source.Aggregator{Name: "Hack"}, Options{})
	assert.ErrorContains(t, err, "connection refused")
	assert.NoDirExists(t, fx.fonts.Path("HackNerdFont"))
	assert.Zero(t, fx.refresher.calls)
}

func TestInstall_ExtractFailure(t *testing.T) {
	fx := newFixture(t, fontFiles)
	broken := filepath.Join(t.TempDir(), "Broken.zip")
	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))

	_, err := fx.svc.Install(context.Background(), source.Local{Path: broken}, Options{})
	var extractErr *archive.ExtractError
	assert.True(t, errors.As(err, &extractErr))
}

func TestInstall_Verify(t *testing.T) {
	fx := newFixture(t, fontFiles)
	local := filepath.Join(t.TempDir(), "Hack.zip")
	writeZip(t, local, fontFiles)
	sum, err := verify.FileSHA256(local)
	require.NoError(t, err)

	_, err = fx.svc.Install(context.Background(), source.Local{Path: local}, Options{
		Verify: verify.Expectation{SHA256: sum},
	})
	require.NoError(t, err)

	_, err = fx.svc.Install(context.Background(), source.Local{Path: local}, Options{
		Verify: verify.Expectation{SHA256: strings.Repeat("0", len(sum))},
	})
	var verr *verify.Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 1, fx.refresher.calls, "failed verification stops before extraction")
}

func TestInstall_AggregatorArchiveRemovedOnFailure(t *testing.T) {
	fx := newFixture(t, fontFiles)
	scratch := filepath.Join(fx.downloads, AggregatorArchiveName)

	_, err := fx.svc.Install(context.Background(), source.Aggregator{Name: "Hack"}, Options{
		Verify: verify.Expectation{SHA256: strings.Repeat("0", 64)},
	})
	var verr *verify.Error
	require.True(t, errors.As(err, &verr))
	assert.NoFileExists(t, scratch, "verification failure")

	require.NoError(t, os.WriteFile(fx.archive, []byte("not a zip"), 0o644))
	_, err = fx.svc.Install(context.Background(), source.Aggregator{Name: "Hack"}, Options{})
	var extractErr *archive.ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.NoFileExists(t, scratch, "extraction failure")
	assert.Zero(t, fx.refresher.calls)
}

func TestInstall_LocalArchiveKeptOnFailure(t *testing.T) {
	fx := newFixture(t, fontFiles)
	local := filepath.Join(t.TempDir(), "Hack.zip")
	writeZip(t, local, fontFiles)

	_, err := fx.svc.Install(context.Background(), source.Local{Path: local}, Options{
		Extract: archive.Options{DeleteArchive: true},
		Verify:  verify.Expectation{SHA256: strings.Repeat("0", 64)},
	})
	require.Error(t, err)
	assert.FileExists(t, local)
}

func TestInstall_Locked(t *testing.T) {
	fx := newFixture(t, fontFiles)
	held, err := lock.Acquire(context.Background(), fx.fonts.Root())
	require.NoError(t, err)
	defer held.Release()

	_, err = fx.svc.Install(context.Background(), source.Aggregator{Name: "Hack"}, Options{})
	assert.ErrorIs(t, err, lock.ErrLockExists)
	assert.Empty(t, fx.downloader.urls)
}

func TestUninstall(t *testing.T) {
	fx := newFixture(t, fontFiles)
	_, err := fx.svc.Install(context.Background(), source.Aggregator{Name: "FiraCode"}, Options{})
	require.NoError(t, err)

	removed, err := fx.svc.Uninstall(context.Background(), "FiraCode")
	require.NoError(t, err)
	assert.Equal(t, fx.fonts.Path("FiraCodeNerdFont"), removed)
	assert.NoDirExists(t, removed)
	assert.Equal(t, 2, fx.refresher.calls)

	_, err = fx.svc.Uninstall(context.Background(), "FiraCode")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 2, fx.refresher.calls)
}

func TestUninstall_ByDirectoryName(t *testing.T) {
	fx := newFixture(t, fontFiles)
	require.NoError(t, os.MkdirAll(filepath.Join(fx.fonts.Path("HackNerdFont"), "sub"), 0o755))
	require.NoError(t, os.MkdirAll(fx.fonts.Path("MyLocalFont"), 0o755))

	removed, err := fx.svc.Uninstall(context.Background(), "HackNerdFont")
	require.NoError(t, err)
	assert.NoDirExists(t, removed)

	removed, err = fx.svc.Uninstall(context.Background(), "MyLocalFont")
	require.NoError(t, err)
	assert.Equal(t, fx.fonts.Path("MyLocalFont"), removed)
}

func TestUninstall_RefusesEscapes(t *testing.T) {
	fx := newFixture(t, fontFiles)
	require.NoError(t, os.MkdirAll(fx.fonts.Root(), 0o755))

	for _, name := range []string{"", "..", "../..", "."} {
		_, err := fx.svc.Uninstall(context.Background(), name)
		assert.Error(t, err, "name %q", name)
	}
	assert.DirExists(t, fx.fonts.Root())
}

func TestInstalled(t *testing.T) {
	fx := newFixture(t, fontFiles)
	_, err := fx.svc.Install(context.Background(), source.Aggregator{Name: "Hack"}, Options{})
	require.NoError(t, err)

	installed, err := fx.svc.Installed()
	require.NoError(t, err)
	require.Len(t, installed, 1)
	assert.Equal(t, "HackNerdFont", installed[0].Name)
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"Hack.zip":                  "Hack",
		"/tmp/JetBrainsMono.zip":    "JetBrainsMono",
		"archive.tar.zip":           "archive.tar",
		"NoExtension":               "NoExtension",
		filepath.Join("a", "b.ZIP"): "b",
	}
	for in, want := range tests {
		got, err := stem(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "/", ".zip", "."} {
		_, err := stem(in)
		assert.ErrorIs(t, err, ErrInvalidPath, in)
	}
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	_, err := NewService(Config{})
	assert.Error(t, err)
}
