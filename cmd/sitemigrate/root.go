package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for sitemigrate.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitemigrate",
		Short: "Crawl a website into a content migration bundle",
		Long: `sitemigrate renders every page of a website in headless Chrome and
extracts its content into a structured bundle for migration to a new CMS.

The bundle contains one JSON file per page, the downloaded images and
documents, a video inventory, the site structure and navigation map,
a URL mapping for redirects and a Markdown migration report.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON lines")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getPersistentBool retrieves a global flag from the command or the root.
func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}
