// Command splitctl is the engine's CLI entry point: it runs the splitter
// over one mother file, prints the reconciliation verdict and integrity
// report, appends to the operation log, and exits through a small,
// explicit exit-code table instead of sysexits.h.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/NebulousLabs/errors"
	"github.com/spf13/cobra"

	"github.com/WilsonNous/netunna-rede-splitter-v2/build"
	"github.com/WilsonNous/netunna-rede-splitter-v2/csvlog"
	"github.com/WilsonNous/netunna-rede-splitter-v2/ferr"
	"github.com/WilsonNous/netunna-rede-splitter-v2/integrity"
	"github.com/WilsonNous/netunna-rede-splitter-v2/splitter"
	"github.com/WilsonNous/netunna-rede-splitter-v2/types"
)

// Exit codes.
const (
	exitOK             = 0
	exitDivergence     = 2
	exitFatalIO        = 3
	exitMalformedInput = 4
)

var (
	flagKind         string
	flagMode         string
	flagOutput       string
	flagNSA          string
	flagTolerance    int64
	flagLogPath      string
	flagIntegrityCSV string
)

func die(code int, args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(code)
}

func runCmd(cmd *cobra.Command, args []string) {
	if len(args) != 1 {
		cmd.UsageFunc()(cmd)
		os.Exit(exitMalformedInput)
	}
	inputPath := args[0]

	kind, err := types.ParseFileKind(flagKind)
	if err != nil {
		die(exitMalformedInput, "splitctl:", err)
	}
	mode := types.EEFIComplete
	if flagMode == "simplified" {
		mode = types.EEFISimplified
	}

	f, err := os.Open(inputPath)
	if err != nil {
		die(exitFatalIO, "splitctl: opening input:", err)
	}
	defer f.Close()

	var skipped int
	opts := splitter.Options{
		Kind:       kind,
		Mode:       mode,
		OutputRoot: flagOutput,
		NSA:        flagNSA,
		Tolerance:  types.Cents(flagTolerance),
		OnSkippedRecord: func(lineNo int, reason string) {
			skipped++
			fmt.Fprintf(os.Stderr, "splitctl: line %d skipped: %s\n", lineNo, reason)
		},
	}

	result, err := splitter.Run(f, opts)
	if err != nil {
		logOutcome(inputPath, kind.String(), "", "", "ERROR", err.Error())
		if errors.Contains(err, ferr.InputError) || errors.Contains(err, ferr.LayoutError) {
			die(exitMalformedInput, "splitctl:", err)
		}
		die(exitFatalIO, "splitctl:", err)
	}

	fmt.Printf("kind=%s nsa=%s emission=%s children=%d\n", result.Kind, result.NSA, result.EmissionDate, len(result.Children))
	for _, c := range result.Children {
		fmt.Printf("  %s  %s  %d bytes  sha256=%s\n", c.PV, filepath.Base(c.Path), c.Size, c.SHA256)
	}

	status := "OK"
	detail := ""
	for _, d := range result.Verdict.Dimensions {
		mark := "OK"
		if !d.OK {
			mark = "DIVERGENT"
			status = "DIVERGENCE"
		}
		line := fmt.Sprintf("%s: expected=%d computed=%d %s", d.Dimension, d.Expected, d.Computed, mark)
		fmt.Println("  " + line)
		detail += d.Detail + "; "
	}

	// The integrity pass re-reads the children from disk rather than
	// trusting the in-memory counts that produced them; a child that
	// cannot be re-read falls back to its bucket counts with a warning.
	childCounts := make(map[types.PV]map[string]int, len(result.Children))
	for _, c := range result.Children {
		cf, err := os.Open(c.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "splitctl: integrity re-read of %s: %v\n", c.Path, err)
			childCounts[c.PV] = result.ChildCounts[c.PV]
			continue
		}
		counts, err := integrity.IndexChild(kind, cf)
		cf.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "splitctl: integrity re-read of %s: %v\n", c.Path, err)
			childCounts[c.PV] = result.ChildCounts[c.PV]
			continue
		}
		childCounts[c.PV] = counts
	}
	rows := integrity.Check(result.MotherCounts, childCounts)
	for _, row := range rows {
		if row.Status != integrity.OK {
			fmt.Printf("  integrity: pv=%s type=%s mother=%d child=%d %s\n", row.PV, row.Type, row.MotherQty, row.ChildQty, row.Status)
		}
	}
	if flagIntegrityCSV != "" {
		rf, err := os.Create(flagIntegrityCSV)
		if err != nil {
			fmt.Fprintln(os.Stderr, "splitctl: integrity report:", err)
		} else {
			if err := integrity.WriteCSV(rf, rows); err != nil {
				fmt.Fprintln(os.Stderr, "splitctl: integrity report:", err)
			}
			rf.Close()
		}
	}

	logOutcome(inputPath, kind.String(), fmt.Sprint(totalTrailer(result)), fmt.Sprint(totalProcessado(result)), status, detail)

	if !result.Verdict.OK {
		os.Exit(exitDivergence)
	}
	os.Exit(exitOK)
}

func totalTrailer(r splitter.Result) types.Cents {
	var sum types.Cents
	for _, d := range r.Verdict.Dimensions {
		sum += d.Expected
	}
	return sum
}

func totalProcessado(r splitter.Result) types.Cents {
	var sum types.Cents
	for _, d := range r.Verdict.Dimensions {
		sum += d.Computed
	}
	return sum
}

func logOutcome(arquivo, tipo, totalTrailer, totalProcessado, status, detail string) {
	if flagLogPath == "" {
		return
	}
	logger, err := csvlog.Open(flagLogPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "splitctl: operation log:", err)
		return
	}
	_ = logger.Append(csvlog.Record{
		Arquivo:         filepath.Base(arquivo),
		Tipo:            tipo,
		TotalTrailer:    totalTrailer,
		TotalProcessado: totalProcessado,
		Status:          status,
		Detalhe:         detail,
	})
}

func main() {
	root := &cobra.Command{
		Use:   "splitctl",
		Short: "splitctl v" + build.Version,
		Long:  "splitctl v" + build.Version + " - split a mother settlement file into per-PV children",
		Run:   runCmd,
	}

	root.Flags().StringVarP(&flagKind, "kind", "k", "", "file kind: EEVC, EEVD, or EEFI (required)")
	root.Flags().StringVarP(&flagMode, "mode", "m", "complete", "EEFI sub-layout: complete or simplified")
	root.Flags().StringVarP(&flagOutput, "output", "o", "output", "output root directory")
	root.Flags().StringVar(&flagNSA, "nsa", "", "override NSA (required for EEVC)")
	root.Flags().Int64Var(&flagTolerance, "tolerance", 0, "reconciliation tolerance, in cents")
	root.Flags().StringVar(&flagLogPath, "log", "", "operation-log CSV path (disabled if empty)")
	root.Flags().StringVar(&flagIntegrityCSV, "integrity-report", "", "write the per-PV integrity report CSV here (disabled if empty)")
	root.MarkFlagRequired("kind")

	if err := root.Execute(); err != nil {
		os.Exit(exitMalformedInput)
	}
}
