// Command xlconsolidate validates and consolidates school statistics workbooks.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/javajack/xlconsolidate"
	"github.com/javajack/xlconsolidate/config"
)

// errDiscrepancies is returned by validate when any check fails.
var errDiscrepancies = errors.New("discrepancies found")

type app struct {
	configFile string
	mode       string
	verbose    bool

	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "xlconsolidate",
		Short:         "Validate and consolidate school statistics workbooks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVarP(&a.mode, "mode", "m", "", "Mode: SCHOOLS, ZONES or SECTORS (overrides config)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newProcessCmd(a),
		newValidateCmd(a),
		newConsolidateCmd(a),
		newTemplateCmd(a),
		newSheetsCmd(a),
		newDescribeCmd(a),
		newStoreCmd(a),
		newRunsCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.mode != "" {
		cfg.Mode = a.mode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	log, err := cfg.Logger(a.verbose)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	a.cfg, a.log = cfg, log
	return nil
}

func (a *app) consolidator(opts ...xlconsolidate.Option) (*xlconsolidate.Consolidator, error) {
	reg, err := a.cfg.Registry(a.log)
	if err != nil {
		return nil, err
	}
	base := []xlconsolidate.Option{
		xlconsolidate.WithRegistry(reg),
		xlconsolidate.WithMode(a.cfg.Mode),
		xlconsolidate.WithTolerance(a.cfg.Tolerance),
		xlconsolidate.WithBackup(a.cfg.Backup),
		xlconsolidate.WithLogger(a.log),
	}
	return xlconsolidate.NewConsolidator(append(base, opts...)...), nil
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
