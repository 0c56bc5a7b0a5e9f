// Package commands holds the export CLI.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/logicloom/logicloom/internal/config"
	"github.com/logicloom/logicloom/internal/export"
)

type exportFlags struct {
	out         string
	basePath    string
	githubPages bool
	concurrency int
	verbose     bool
}

// NewRootCmd builds the export command.
func NewRootCmd() *cobra.Command {
	var f exportFlags

	cmd := &cobra.Command{
		Use:           "export",
		Short:         "Render the marketing pages to static HTML",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			basePath := resolveBasePath(f, os.Getenv)

			level := slog.LevelInfo
			if f.verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			res, err := export.Run(cmd.Context(), export.Options{
				OutDir:      f.out,
				BasePath:    basePath,
				Concurrency: f.concurrency,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			for _, name := range res.Files {
				logger.Debug("file_written", slog.String("file", name))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d files to %s (base path %q)\n", len(res.Files), f.out, basePath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&f.out, "out", "o", "out", "output directory")
	cmd.Flags().StringVar(&f.basePath, "base-path", "", "URL prefix the site is served under (default $BASE_PATH)")
	cmd.Flags().BoolVar(&f.githubPages, "github-pages", false, "serve under "+export.GitHubPagesBasePath+" (implied by GITHUB_ACTIONS=true)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 4, "pages rendered in parallel")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log every written file")

	return cmd
}

// resolveBasePath picks the base path: --github-pages or GITHUB_ACTIONS=true
// win, then --base-path, then BASE_PATH.
func resolveBasePath(f exportFlags, getenv func(string) string) string {
	if f.githubPages || getenv("GITHUB_ACTIONS") == "true" {
		return export.GitHubPagesBasePath
	}
	if f.basePath != "" {
		return config.NormalizeBasePath(f.basePath)
	}
	return config.NormalizeBasePath(getenv("BASE_PATH"))
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return err
	}
	return nil
}
