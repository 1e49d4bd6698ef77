package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/javajack/xlconsolidate"
	"github.com/javajack/xlconsolidate/batch"
	"github.com/javajack/xlconsolidate/extract"
	"github.com/javajack/xlconsolidate/numeric"
	"github.com/javajack/xlconsolidate/store"
)

func newProcessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "process FILE",
		Short: "Extract and derive the numeric grid of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.consolidator()
			if err != nil {
				return err
			}
			res, err := c.Process(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", res.Range, res.Numeric.Grid)
			printGrid(out, res.Numeric.Grid)
			if res.Report.Summary != "" {
				fmt.Fprintf(out, "\n%s\n", res.Report.Summary)
			}
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Run the coherence checks of every sheet of the mode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.consolidator()
			if err != nil {
				return err
			}
			wr, err := c.ProcessSheets(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range wr.Sheets {
				if s.Err != nil {
					fmt.Fprintf(out, "%s: %v\n", s.Schema, s.Err)
				}
			}
			fmt.Fprintln(out, wr.Report.Summary)
			if !wr.Report.OK() {
				return errDiscrepancies
			}
			return nil
		},
	}
}

func newConsolidateCmd(a *app) *cobra.Command {
	var template, output string
	var doInject bool
	cmd := &cobra.Command{
		Use:   "consolidate FILE...",
		Short: "Sum the grids of several workbooks, optionally into a template",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			c, err := a.consolidator(xlconsolidate.WithProgress(func(done, total int, path string) {
				fmt.Fprintf(out, "[%d/%d] %s\n", done, total, path)
			}))
			if err != nil {
				return err
			}
			if template == "" {
				template = a.cfg.Template
			}
			if doInject {
				if template == "" || output == "" {
					return fmt.Errorf("--inject needs --template (or XLC_TEMPLATE) and --out")
				}
				res, err := c.Consolidate(args, template, output)
				printFailures(out, res.Batch)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "written %d cells to %s!%s (%d skipped): %s\n",
					res.Inject.Write.Written, res.Inject.Output, res.Inject.Destination,
					res.Inject.Write.Skipped, res.Inject.Stats)
				return nil
			}

			res, err := c.ProcessFiles(args)
			if err != nil {
				return err
			}
			printFailures(out, res)
			if res.AggregateErr != nil {
				return res.AggregateErr
			}
			fmt.Fprintf(out, "run %s: %d files, %s\n", res.RunID, len(res.Files), res.Aggregate)
			printGrid(out, res.Aggregate)
			return nil
		},
	}
	cmd.Flags().StringVarP(&template, "template", "t", "", "Template workbook (default: config template)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "Output workbook")
	cmd.Flags().BoolVar(&doInject, "inject", false, "Write the sum into a copy of the template")
	return cmd
}

func newTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "template TEMPLATE",
		Short: "Check an injection template without writing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.consolidator()
			if err != nil {
				return err
			}
			issues, err := c.ValidateTemplate(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(issues) == 0 {
				fmt.Fprintln(out, "template OK")
			}
			failed := false
			for _, is := range issues {
				fmt.Fprintln(out, is)
				failed = failed || is.Severity == xlconsolidate.SeverityError
			}
			if failed {
				return fmt.Errorf("template %s is not usable", args[0])
			}
			return nil
		},
	}
}

func newSheetsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets FILE",
		Short: "List the sheets of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sheets, err := extract.ListSheets(args[0])
			if err != nil {
				return err
			}
			for _, s := range sheets {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe FILE",
		Short: "Outline the detected structure of a workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.consolidator()
			if err != nil {
				return err
			}
			s, err := c.Describe(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), s)
			return nil
		},
	}
}

func newStoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "store FILE...",
		Short: "Normalize workbooks and save the records in the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.consolidator()
			if err != nil {
				return err
			}
			db, err := store.Open(cmd.Context(), a.cfg.DBPath, store.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			res, n, err := c.Store(cmd.Context(), db, args)
			printFailures(out, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "run %s: %d records from %d files saved to %s\n", res.RunID, n, len(res.Files), a.cfg.DBPath)
			totals, err := db.Totals(cmd.Context(), res.RunID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "CONCEPT\tGRADE\tGENDER\tTOTAL\t")
			for _, t := range totals {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", t.Concept, t.Grade, t.Gender, numeric.Number(t.Total))
			}
			return tw.Flush()
		},
	}
}

func newRunsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List the runs saved in the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(cmd.Context(), a.cfg.DBPath, store.WithLogger(a.log))
			if err != nil {
				return err
			}
			defer db.Close()
			runs, err := db.Runs(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %d files  %d records  total %s\n",
					r.RunID, r.Sources, r.Records, numeric.Number(r.Total))
			}
			return nil
		},
	}
}

func printGrid(w io.Writer, g numeric.Grid) {
	tw := tabwriter.NewWriter(w, 0, 4, 1, ' ', tabwriter.AlignRight)
	for _, row := range g.Strings() {
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}
	tw.Flush()
}

func printFailures(w io.Writer, res *batch.Result) {
	if res == nil {
		return
	}
	for _, f := range res.Failed {
		fmt.Fprintln(w, "failed:", f)
	}
}
