package cmd

import (
	"github.com/spf13/cobra"
)

var calcCmd = &cobra.Command{
	Use:   "calc <girth> <length>",
	Short: "Add a log to the bill",
	Long: `Compute the volume of one log, price it from the stored table and
append it to the current bill.

Girth is in inches and length in feet. A length that is not in the
catalog is priced at the nearest catalog length; halfway between two
lengths picks the longer one.`,
	Args: cobra.ExactArgs(2),
	RunE: runCalc,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <girth> <length>",
	Short: "Show how a log would be priced without adding it",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolve,
}

func init() {
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runCalc(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w, view := newBillView(cmd)
	entry, res, err := a.Bills.AddEntry(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	if res.RangeFound {
		w.Debug("priced from %s", res.Key.String())
	}
	if !res.Matched {
		w.Warning("Price not found for girth %s and length %s. Check the price table.",
			entry.Girth.StringFixed(2), entry.Length.StringFixed(2))
	}

	current, err := a.Bills.Current(ctx)
	if err != nil {
		return err
	}
	view.DisplayEntry(current.Len(), entry)
	view.DisplayTotals(current.Totals())
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	w, view := newBillView(cmd)
	entry, res, err := a.Bills.Quote(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	w.SubHeader("Price")
	view.DisplayResolution(res)
	w.Println("")
	w.SubHeader("Log")
	w.Println("Volume: %s cft", entry.Volume.StringFixed(1))
	w.Println("Total:  %s", entry.LogTotal.StringFixed(2))
	return nil
}
