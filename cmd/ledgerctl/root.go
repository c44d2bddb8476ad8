package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bizledger/internal/backend"
	"bizledger/internal/cli"
	"bizledger/internal/config"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
)

// app carries state shared by every subcommand of one invocation.
type app struct {
	verbose         bool
	format          string
	backendOverride string
	envFile         string

	cfg    *config.Config
	logger *log.Logger
	res    *backend.BackendResult
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Record and report business transactions and events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging on stderr")
	flags.StringVarP(&a.format, "format", "f", formatTable, "output format: table, json or yaml")
	flags.StringVar(&a.backendOverride, "backend", "", "override DATA_BACKEND (json, sqlite, postgres)")
	flags.StringVar(&a.envFile, "env-file", "", "load settings from this file instead of .env")

	root.AddCommand(
		newTxCmd(a),
		newEventCmd(a),
		newSummaryCmd(a),
		newSeriesCmd(a),
		newCategoriesCmd(a),
		newExportCmd(a),
		newSuggestCmd(a),
	)
	return root, a
}

func (a *app) init() error {
	if err := validateFormat(a.format); err != nil {
		return err
	}

	if a.envFile != "" {
		cli.LoadEnvFile(a.envFile)
	} else {
		cli.LoadEnvFile()
	}

	level := "warn"
	if a.verbose {
		level = "debug"
	}
	a.logger = cli.SetupLogger(level, os.Stderr).WithComponent(log.ComponentCLI)

	a.cfg = config.Load()
	if a.backendOverride != "" {
		a.cfg.DataBackend = a.backendOverride
	}
	if a.cfg.DataBackend == config.BackendMemory {
		return fmt.Errorf("the memory backend does not persist between ledgerctl runs")
	}
	return a.cfg.Validate()
}

// ledger opens the store on first use so commands that do not touch records
// never create one.
func (a *app) ledger(ctx context.Context) (*ledger.Service, error) {
	if a.res == nil {
		res, err := cli.OpenBackend(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		a.res = res
	}
	return a.res.Ledger, nil
}

func (a *app) close() error {
	if a.res == nil {
		return nil
	}
	err := a.res.Cleanup()
	a.res = nil
	return err
}
