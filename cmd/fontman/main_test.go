package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ZebulonRouseFrantzich/fontman/internal/installer"
	"github.com/ZebulonRouseFrantzich/fontman/internal/platform"
	"github.com/ZebulonRouseFrantzich/fontman/internal/source"
	"github.com/ZebulonRouseFrantzich/fontman/internal/testutil"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type cliEnv struct {
	fonts  string
	config string
}

// setupCLI isolates HOME and writes a config that points the font root at a
// temp directory and disables the cache refresh.
func setupCLI(t *testing.T) cliEnv {
	t.Helper()
	env := testutil.SetupTestEnv(t)

	fonts := filepath.Join(env.Home, ".local", "share", "fonts")
	cfgPath := filepath.Join(env.ConfigDir, "fontman.lua")
	cfg := fmt.Sprintf("fontman = { fonts_dir = %q, download_dir = %q, refresh = false }", fonts, env.Home)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	return cliEnv{fonts: fonts, config: cfgPath}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{detector: platform.Static{Info: &platform.Info{OS: "linux", Arch: "amd64"}}}
	cmd := newRootCmdWith(opts)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeArchive(t *testing.T, path string, files map[string]string) {
	t.Helper()
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

func TestInstallFlags_Request(t *testing.T) {
	tests := []struct {
		name  string
		flags installFlags
		args  []string
		want  source.Request
	}{
		{
			name:  "nerd with name",
			flags: installFlags{nerd: true},
			args:  []string{"FiraCode"},
			want:  source.Request{Aggregator: true, AggregatorName: "FiraCode"},
		},
		{
			name:  "zip",
			flags: installFlags{fromZip: "Hack.zip"},
			want:  source.Request{LocalPath: "Hack.zip"},
		},
		{
			name:  "url with stray name",
			flags: installFlags{fromURL: "https://x/y.zip"},
			args:  []string{"Hack"},
			want:  source.Request{URL: "https://x/y.zip", AggregatorName: "Hack"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.request(tt.args))
		})
	}
}

func TestInstall_RejectsTwoSourcesBeforeAnyWork(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "--config", env.config, "install", "--from-zip", "Hack.zip", "--from-url", "https://example.com/Hack.zip")

	var cmdErr *source.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, source.ReasonExactlyOne, cmdErr.Reason)
	assert.NoDirExists(t, env.fonts)
}

func TestInstall_UnknownNerdFont(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "--config", env.config, "install", "--nerd", "ComicSans")

	var cmdErr *source.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, source.ReasonUnknownName, cmdErr.Reason)
}

func TestInstall_SuggestsCloseNames(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "--config", env.config, "install", "--nerd", "FiraCod")

	var cmdErr *source.CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, err.Error(), "did you mean")
	assert.Contains(t, err.Error(), "FiraCode")
}

func TestInstall_FromZipAndUninstall(t *testing.T) {
	env := setupCLI(t)
	archivePath := filepath.Join(t.TempDir(), "Sample.zip")
	writeArchive(t, archivePath, map[string]string{
		"Sample-Regular.ttf": "ttf",
		"Sample-Regular.otf": "otf",
		"LICENSE.md":         "license",
	})

	out, err := run(t, "--config", env.config, "install", "-z", archivePath, "-d")
	require.NoError(t, err)
	assert.Contains(t, out, "Installed Sample (2 entries)")
	assert.FileExists(t, filepath.Join(env.fonts, "Sample", "Sample-Regular.ttf"))
	assert.NoFileExists(t, archivePath)

	out, err = run(t, "--config", env.config, "list", "--installed")
	require.NoError(t, err)
	assert.Contains(t, out, "Sample\t"+filepath.Join(env.fonts, "Sample"))

	out, err = run(t, "--config", env.config, "uninstall", "Sample")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed "+filepath.Join(env.fonts, "Sample"))
	assert.NoDirExists(t, filepath.Join(env.fonts, "Sample"))

	_, err = run(t, "--config", env.config, "uninstall", "Sample")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstall_NothingInstalled(t *testing.T) {
	env := setupCLI(t)
	archivePath := filepath.Join(t.TempDir(), "Docs.zip")
	writeArchive(t, archivePath, map[string]string{"Font.otf": "otf"})

	out, err := run(t, "--config", env.config, "install", "--from-zip", archivePath)
	assert.ErrorIs(t, err, installer.ErrFontsIgnored)
	assert.Contains(t, out, "Docs: nothing installed")
}

func TestInstall_SignatureNeedsKeyring(t *testing.T) {
	env := setupCLI(t)

	_, err := run(t, "--config", env.config, "install", "--from-zip", "x.zip", "--signature", "x.zip.asc")
	assert.Error(t, err)
}

func TestList_Catalog(t *testing.T) {
	env := setupCLI(t)

	out, err := run(t, "--config", env.config, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "FiraCode\n")
	assert.Contains(t, out, "JetBrainsMono\n")

	out, err = run(t, "--config", env.config, "list", "-o", "yaml")
	require.NoError(t, err)

	var listing catalogListing
	require.NoError(t, yaml.Unmarshal([]byte(out), &listing))
	assert.Equal(t, "https://github.com/ryanoasis/nerd-fonts/releases/download/v3.2.1", listing.BaseURL)
	assert.Len(t, listing.Fonts, 50)
}

func TestList_InstalledEmpty(t *testing.T) {
	env := setupCLI(t)

	out, err := run(t, "--config", env.config, "list", "--installed")
	require.NoError(t, err)
	assert.Contains(t, out, "No fonts installed")

	_, err = run(t, "--config", env.config, "list", "--output", "json")
	assert.Error(t, err)
}

func TestConfigErrorsAreFatal(t *testing.T) {
	env := setupCLI(t)
	require.NoError(t, os.WriteFile(env.config, []byte("fontman = {"), 0o644))

	_, err := run(t, "--config", env.config, "list")
	assert.ErrorContains(t, err, "load config")
}

func TestCatalogOverride(t *testing.T) {
	env := setupCLI(t)
	catalogPath := filepath.Join(t.TempDir(), "catalog.lua")
	require.NoError(t, os.WriteFile(catalogPath, []byte(`catalog = { base_url = "https://mirror.example/fonts", suffix = "NF", fonts = { "Tiny" } }`), 0o644))
	cfg := fmt.Sprintf("fontman = { fonts_dir = %q, catalog_file = %q, refresh = false }", env.fonts, catalogPath)
	require.NoError(t, os.WriteFile(env.config, []byte(cfg), 0o644))

	out, err := run(t, "--config", env.config, "list")
	require.NoError(t, err)
	assert.Equal(t, "Tiny\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fontman "+Version+"\n", out)
}
