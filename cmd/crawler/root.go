package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/project-tktt/indeed-crawler/internal/common/logging"
	"github.com/project-tktt/indeed-crawler/internal/config"
)

type options struct {
	position string
	location string
	maxPages int
	headless bool
}

// NewRootCmd creates the crawler command
func NewRootCmd() *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "crawler",
		Short: "Search Indeed and extract job listings",
		Long: `crawler runs a paginated Indeed search for a position and location,
fetches every listing on each results page and writes the extracted jobs
as a JSON array. Extra sinks, retry tuning and the transport are configured
through environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.maxPages < 1 {
				return fmt.Errorf("--max-pages must be at least 1, got %d", opts.maxPages)
			}

			cfg := config.Load()
			logger := logging.New(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, opts, cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.position, "position", "web developer", "job title or keywords to search for")
	flags.StringVar(&opts.location, "location", "San Francisco", "city, state or region to search in")
	flags.IntVar(&opts.maxPages, "max-pages", 2, "maximum number of result pages to crawl")
	flags.BoolVar(&opts.headless, "headless", true, "provision a virtual X display for the run")

	return cmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
