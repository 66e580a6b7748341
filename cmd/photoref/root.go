package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"photoref/internal/library"
	"photoref/internal/logging"
	"photoref/internal/startup"
)

type app struct {
	projectDir string
	logLevel   string
}

type libraryFunc func(cmd *cobra.Command, args []string, lib *library.Library) error

func newRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "photoref",
		Short:         "Personal photo reference library",
		Version:       startup.GetBuildInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.logLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(a.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", a.logLevel)
			}
			logging.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.projectDir, "project", "C", ".", "project directory")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		a.initCommand(),
		a.folderCommand(),
		a.importCommand(),
		a.lsCommand(),
		a.searchCommand(),
		a.showCommand(),
		a.favCommand("fav", true),
		a.favCommand("unfav", false),
		a.rateCommand(),
		a.tagCommand(),
		a.noteCommand(),
		a.attrCommand(),
		a.rmCommand(),
		a.restoreCommand(),
		a.purgeCommand(),
		a.mvCommand(),
		a.thumbCommand(),
		a.statsCommand(),
	)
	return root
}

// withLibrary opens the project for the duration of one command.
func (a *app) withLibrary(fn libraryFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := startup.LoadConfig(a.projectDir)
		if errors.Is(err, startup.ErrNotInitialized) {
			return fmt.Errorf("%w (run 'photoref init' first)", err)
		}
		if err != nil {
			return err
		}
		startup.LogConfig(cfg)

		lib, err := library.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := lib.Close(); err != nil {
				logging.Warn("Failed to close library: %v", err)
			}
		}()

		return fn(cmd, args, lib)
	}
}

func (a *app) initCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the project state directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := startup.InitProject(a.projectDir)
			if err != nil {
				return err
			}
			lib, err := library.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if err := lib.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized library %s in %s\n", cfg.LibraryID, cfg.StateDir)
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
