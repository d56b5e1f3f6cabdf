package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"media-catalog/internal/logging"
	"media-catalog/internal/media"
	"media-catalog/internal/startup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCommand().ExecuteContext(ctx)
	media.ShutdownVips()
	logging.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "media-catalog: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "media-catalog",
		Short: "Per-user photo and video catalog",
		Long: `media-catalog indexes each user's media directory into a catalog database,
generates previews and thumbnails, and serves them over HTTP.

Configuration comes from environment variables (STORAGE_DIR, CACHE_DIR,
DATABASE_DIR, DATABASE_URL, ...) and an optional YAML file named by CONFIG_FILE.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newServeCmd(),
		newScanCmd(),
		newPreviewsCmd(),
		newUsersCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := startup.GetBuildInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "media-catalog %s (commit %s, built %s, %s %s/%s)\n",
				info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
		},
	}
}
