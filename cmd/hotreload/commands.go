package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	internal "github.com/ZanzyTHEbar/hot-reload/hotreload"
	"github.com/ZanzyTHEbar/hot-reload/hotreload/config"
	"github.com/ZanzyTHEbar/hot-reload/hotreload/filesystem/watcher"
	"github.com/ZanzyTHEbar/hot-reload/hotreload/runner"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           internal.DefaultAppCMDShortCut,
		Short:         "Run commands whenever watched files change",
		Long:          "hotreload polls the configured watch paths and runs the configured commands, in order, every time a matching file is created, modified or deleted.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(cmd, opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "shorthand for --log-level=debug")

	cmd.AddCommand(
		newInitCmd(),
		newStartCmd(),
		newVersionCmd(),
	)

	return cmd
}

func setupLogging(cmd *cobra.Command, opts *rootOptions) error {
	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	} else if err := level.UnmarshalText([]byte(strings.ToLower(opts.logLevel))); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", opts.logLevel, err)
	}

	slog.SetDefault(slog.New(tint.NewHandler(cmd.ErrOrStderr(), &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))

	return nil
}

func newInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default settings file in the working directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}

			logger := internal.GetLogger()
			logger.Info().Str("path", path).Msg("Created settings file")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing settings file")
	cmd.Flags().StringVarP(&path, "config", "c", config.DefaultPath(), "settings file to create")

	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		path      string
		shell     string
		shellFlag string
	)

	cmd := &cobra.Command{
		Use:     "start",
		Aliases: []string{"watch"},
		Short:   "Watch the configured paths and run commands on change",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(path)
			if err != nil {
				return err
			}

			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}

			targets, err := config.ResolveTargets(settings, wd)
			if err != nil {
				return err
			}

			loopOpts := []watcher.LoopOption{
				watcher.WithReporter(watcher.NewOutputReporter(cmd.OutOrStdout())),
			}
			if shell != "" {
				loopOpts = append(loopOpts, watcher.WithRunner(runner.NewShellRunnerWith(shell, shellFlag)))
			}

			supervisor, err := watcher.NewSupervisor(targets, loopOpts...)
			if err != nil {
				return err
			}

			slog.Info("Starting hot reload", "targets", len(targets), "settings", path)

			if err := supervisor.Run(cmd.Context()); err != nil {
				return err
			}

			slog.Info("Stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&path, "config", "c", config.DefaultPath(), "settings file to load")
	cmd.Flags().StringVar(&shell, "shell", "", "shell used to run commands (default /bin/sh, cmd on windows)")
	cmd.Flags().StringVar(&shellFlag, "shell-flag", "-c", "flag passing the command line to --shell")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", internal.DefaultAppName, version)
		},
	}
}
