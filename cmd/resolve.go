package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cicloteca-backend/internal/links"
	"cicloteca-backend/internal/resolver"
	"cicloteca-backend/pkg/models"
)

var errUnresolved = errors.New("reference could not be resolved")

func newResolveCmd(flags *globalFlags) *cobra.Command {
	var (
		mode    string
		timeout time.Duration
		direct  bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <ref>",
		Short: "Resolve a file reference into a download URL",
		Long: `Resolve a file reference into a download URL.

The reference is an absolute URL, a storage path such as books/42, or a
JSON storage handle such as '{"path":"images/42"}'.

Modes:
  policy      run the configured escalation policy (default)
  fast        one attempt bounded by --timeout
  background  wait for the storage backend as long as --timeout allows`,
		Args: cobra.ExactArgs(1),
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

			if timeout <= 0 && mode == "fast" {
				timeout = cfg.Resolver.FastTimeout
			}
			url, ok := resolveWith(cmd.Context(), a, ref, mode, timeout)
			if !ok {
				return errUnresolved
			}
			if direct {
				url = links.RewriteToDirectLink(url)
			}

			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "policy", "Resolution mode: policy, fast or background")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Timeout for fast and background modes")
	cmd.Flags().BoolVar(&direct, "direct", false, "Rewrite share links into direct-download links")
	return cmd
}

// resolveWith resolves ref with the named mode
func resolveWith(ctx context.Context, a *app, ref models.Reference, mode string, timeout time.Duration) (string, bool) {
	if mode == "" || mode == "policy" {
		return a.resolver.Resolve(ctx, ref, a.policy)
	}

	m, err := resolver.ParseMode(mode)
	if err != nil {
		a.logger.Warn("unknown mode, using the policy", "mode", mode)
		return a.resolver.Resolve(ctx, ref, a.policy)
	}
	if m == resolver.ModeFast {
		return a.resolver.ResolveFast(ctx, ref, timeout)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.resolver.ResolveBackground(ctx, ref)
}

// parseReference reads a CLI argument as a JSON handle when it looks like
// one and as plain text otherwise
func parseReference(arg string) (models.Reference, error) {
	if strings.HasPrefix(strings.TrimSpace(arg), "{") {
		var ref models.Reference
		if err := json.Unmarshal([]byte(arg), &ref); err != nil {
			return models.Reference{}, fmt.Errorf("invalid reference handle: %w", err)
		}
		return ref, nil
	}
	return models.TextRef(arg), nil
}
