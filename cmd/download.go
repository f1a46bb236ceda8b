package cmd

import (
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"cicloteca-backend/internal/download"
	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/reference"
)

func newDownloadCmd(flags *globalFlags) *cobra.Command {
	var (
		outDir string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "download <ref>",
		Short: "Resolve a file reference and save the file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseReference(args[0])
			if err != nil {
				return err
			}

			cfg, logger, err := loadConfig(flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			url, ok := a.resolver.Resolve(cmd.Context(), ref, a.policy)
			if !ok {
				return errUnresolved
			}
			url = links.RewriteToDirectLink(url)

			if name == "" {
				name = fallbackName(ref.String())
			}

			result, err := a.executor.Deliver(cmd.Context(), download.Request{
				URL:           url,
				SuggestedName: name,
				Sink:          download.NewDirSink(outDir, cmd.OutOrStdout()),
			})
			if err != nil {
				return err
			}

			if result.Strategy != download.StrategyOpen {
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d bytes, %s)\n", result.FileName, result.Bytes, result.Strategy)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory to save the file in")
	cmd.Flags().StringVarP(&name, "name", "n", "", "File name to use when the server does not suggest one")
	return cmd
}

// fallbackName derives a file name from the reference itself
func fallbackName(raw string) string {
	s := reference.Clean(raw)
	if !reference.IsAbsoluteURL(s) {
		s = reference.EnsureExtension(strings.TrimPrefix(s, "/"))
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	base := path.Base(s)
	if base == "." || base == "/" || base == "" {
		return download.DefaultFallbackName
	}
	return base
}
