package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	rulpm "github.com/lucianolorenti/rul-pm"
	"github.com/lucianolorenti/rul-pm/internal/adapters/csvio"
	"github.com/lucianolorenti/rul-pm/internal/imputer"
)

func prepareCommand(args []string) error {
	fs := flag.NewFlagSet("prepare", flag.ExitOnError)
	cfgPath := configFlag(fs)
	force := fs.Bool("force", false, "Re-segment lives even when a manifest exists")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	var opts []rulpm.DatasetOption
	if *force {
		opts = append(opts, rulpm.WithRebuild())
	}
	ds, err := e.open(ctx, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("%d valid lives in %s\n", ds.NTimeSeries(), ds.LivesDir())
	return nil
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := rulpm.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func listCommand(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	cfgPath := configFlag(fs)
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	ds, err := e.open(ctx)
	if err != nil {
		return err
	}
	return writeLives(os.Stdout, ds.Lives(), *asJSON)
}

func writeLives(w io.Writer, lives []rulpm.ManifestEntry, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(lives)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tTOOL\tSAMPLES\tFAILURE TYPE\tFILE")
	for i, l := range lives {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", i, l.Tool, l.Samples, l.FailureType, l.Filename)
	}
	return tw.Flush()
}

func getCommand(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	cfgPath := configFlag(fs)
	index := fs.Int("index", 0, "Index of the valid life")
	impute := fs.String("impute", "", "Imputer to apply: nan, mean, median or ffill")
	window := fs.Int("window", 5, "Window of the rolling imputers")
	out := fs.String("out", "", "Output CSV path (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	ds, err := e.open(ctx)
	if err != nil {
		return err
	}
	f, err := ds.TimeSeries(*index)
	if err != nil {
		return err
	}
	if *impute != "" {
		imp, err := imputer.Parse(*impute, *window)
		if err != nil {
			return err
		}
		if f, err = imputer.ApplyFrame(f, imp); err != nil {
			return err
		}
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		file, err := os.Create(*out)
		if err != nil {
			return err
		}
		defer file.Close()
		w = file
	}
	return csvio.WriteFrame(w, f)
}

func exportCommand(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := setup(*cfgPath)
	if err != nil {
		return err
	}
	defer e.logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	ds, err := e.open(ctx)
	if err != nil {
		return err
	}
	sink, db, err := rulpm.OpenTimescaleSink(e.cfg.Timescale)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := ds.Export(ctx, sink)
	if err != nil {
		return fmt.Errorf("exported %d lives before failing: %w", n, err)
	}
	fmt.Printf("exported %d lives into %s\n", n, e.cfg.Timescale.Table)
	return nil
}
