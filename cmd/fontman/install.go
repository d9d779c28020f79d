package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/archive"
	"github.com/ZebulonRouseFrantzich/fontman/internal/download"
	"github.com/ZebulonRouseFrantzich/fontman/internal/fontcache"
	"github.com/ZebulonRouseFrantzich/fontman/internal/installer"
	"github.com/ZebulonRouseFrantzich/fontman/internal/source"
	"github.com/ZebulonRouseFrantzich/fontman/internal/verify"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

type installFlags struct {
	nerd        bool
	fromZip     string
	fromURL     string
	deleteZip   bool
	useOTF      bool
	interactive bool
	sha256      string
	signature   string
	keyring     string
}

// request maps the flags and the optional positional name onto a source
// request. Validation happens later in source.Validate.
func (f installFlags) request(args []string) source.Request {
	req := source.Request{
		Aggregator: f.nerd,
		LocalPath:  f.fromZip,
		URL:        f.fromURL,
	}
	if len(args) > 0 {
		req.AggregatorName = args[0]
	}
	return req
}

func (f installFlags) options() installer.Options {
	return installer.Options{
		Extract: archive.Options{
			DeleteArchive: f.deleteZip,
			PreferOTF:     f.useOTF,
			Interactive:   f.interactive,
		},
		Verify: verify.Expectation{
			SHA256:        f.sha256,
			SignaturePath: f.signature,
			KeyringPath:   f.keyring,
		},
	}
}

func newInstallCmd(root *rootOptions) *cobra.Command {
	var flags installFlags

	cmd := &cobra.Command{
		Use:   "install [NAME]",
		Short: "Install a font",
		Long: `Install a font from exactly one source:

  fontman install --nerd FiraCode
  fontman install --from-zip ./Hack.zip
  fontman install --from-url https://example.com/Iosevka.zip

Nerd Fonts are installed into <font dir>/<NAME>NerdFont and their archive is
always deleted afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			env, err := root.load(ctx)
			if err != nil {
				return err
			}

			src, err := source.Validate(flags.request(args), env.catalog)
			if err != nil {
				return withSuggestions(err, env, args)
			}

			svc, err := newService(env, flags.interactive)
			if err != nil {
				return err
			}

			result, err := svc.Install(ctx, src, flags.options())
			if err != nil {
				if errors.Is(err, installer.ErrFontsIgnored) {
					color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "! %s: nothing installed\n", result.FontName)
				}
				return err
			}

			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Installed %s (%d entries) into %s\n", result.FontName, result.Installed, result.Directory)
			return nil
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.nerd, "nerd", false, "install the Nerd Font named by the NAME argument")
	f.StringVarP(&flags.fromZip, "from-zip", "z", "", "install from a local zip archive")
	f.StringVarP(&flags.fromURL, "from-url", "u", "", "install from a zip archive URL")
	f.BoolVarP(&flags.deleteZip, "delete-zip", "d", false, "delete the archive after installing")
	f.BoolVar(&flags.useOTF, "use-otf", false, "install .otf files instead of .ttf files")
	f.BoolVarP(&flags.interactive, "interactive", "i", false, "ask before installing each file")
	f.StringVar(&flags.sha256, "sha256", "", "expected SHA-256 digest of the archive")
	f.StringVar(&flags.signature, "signature", "", "detached OpenPGP signature of the archive")
	f.StringVar(&flags.keyring, "keyring", "", "OpenPGP public keyring that must contain the signer")
	cmd.MarkFlagsRequiredTogether("signature", "keyring")

	return cmd
}

// withSuggestions names close catalog fonts when the aggregator name was
// unknown.
func withSuggestions(err error, env *environment, args []string) error {
	var cmdErr *source.CommandError
	if !errors.As(err, &cmdErr) || cmdErr.Reason != source.ReasonUnknownName || len(args) == 0 {
		return err
	}
	if names := env.catalog.Suggest(args[0], 3); len(names) > 0 {
		return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(names, ", "))
	}
	return err
}

// newService wires the installer for one invocation.
func newService(env *environment, interactive bool) (*installer.Service, error) {
	extractCfg := archive.Config{
		Fonts:    env.fonts,
		Platform: env.info,
		Logger:   env.log,
	}
	if interactive {
		extractCfg.Lines = archive.NewConsoleLines()
	}
	extractor, err := archive.NewExtractor(extractCfg)
	if err != nil {
		return nil, err
	}

	return installer.NewService(installer.Config{
		Catalog:    env.catalog,
		Fonts:      env.fonts,
		Extractor:  extractor,
		Downloader: download.NewDownloader(download.Config{UserAgent: "fontman/" + Version, Logger: env.log}),
		Verifier:   verify.NewVerifier(env.log),
		Refresher: fontcache.New(fontcache.Config{
			Command:  env.cfg.Refresh.Command,
			Args:     env.cfg.Refresh.Args,
			Disabled: !env.cfg.Refresh.Enabled,
			Logger:   env.log,
		}),
		DownloadDir: env.cfg.DownloadDir,
		Logger:      env.log,
	})
}
