package cmd

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"timbercalc/adapters/export"
	"timbercalc/internal/errors"
)

var billCmd = &cobra.Command{
	Use:   "bill",
	Short: "Show and edit the current bill",
}

var billShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current bill",
	RunE:  runBillShow,
}

var billEditCmd = &cobra.Command{
	Use:   "edit <slno>",
	Short: "Change the girth, length or unit price of an entry",
	Long: `Change an entry by its serial number. Flags that are not given keep
their current value. A price given here overrides the price table and
may be zero.`,
	Example: "  timbercalc bill edit 2 --price 0",
	Args:    cobra.ExactArgs(1),
	RunE:    runBillEdit,
}

var billDeleteCmd = &cobra.Command{
	Use:     "delete <slno>",
	Short:   "Remove an entry",
	Example: "  timbercalc bill delete 3",
	Args:    cobra.ExactArgs(1),
	RunE:    runBillDelete,
}

var billClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry",
	RunE:  runBillClear,
}

var billExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Save the bill as a PDF or XLSX file",
	RunE:  runBillExport,
}

var (
	billJSON   bool
	editGirth  string
	editLength string
	editPrice  string
	clearYes   bool
	exportName string
	exportFmt  string
	exportDir  string
)

func init() {
	rootCmd.AddCommand(billCmd)
	billCmd.AddCommand(billShowCmd)
	billCmd.AddCommand(billEditCmd)
	billCmd.AddCommand(billDeleteCmd)
	billCmd.AddCommand(billClearCmd)
	billCmd.AddCommand(billExportCmd)

	billShowCmd.Flags().BoolVar(&billJSON, "json", false, "print the bill as JSON")

	billEditCmd.Flags().StringVar(&editGirth, "girth", "", "new girth in inches")
	billEditCmd.Flags().StringVar(&editLength, "length", "", "new length in feet")
	billEditCmd.Flags().StringVar(&editPrice, "price", "", "new unit price")

	billClearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")

	billExportCmd.Flags().StringVarP(&exportName, "client", "c", "", "client name [REQUIRED]")
	billExportCmd.Flags().StringVarP(&exportFmt, "format", "f", "", "file format (pdf, xlsx)")
	billExportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	billExportCmd.MarkFlagRequired("client")
}

func runBillShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	current, err := a.Bills.Current(ctx)
	if err != nil {
		return err
	}
	if billJSON {
		_, view := newBillView(cmd)
		return view.JSONOutput(map[string]interface{}{
			"entries": current.Entries(),
			"totals":  current.Totals(),
		})
	}
	w, view := newBillView(cmd)
	w.Header("Current Bill")
	view.DisplayBill(current.Entries(), current.Totals())
	return nil
}

func runBillEdit(cmd *cobra.Command, args []string) error {
	index, err := parseSlno(args[0])
	if err != nil {
		return err
	}
	if editGirth == "" && editLength == "" && editPrice == "" {
		return errors.Validation("nothing to change: pass --girth, --length or --price")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	entry, err := a.Bills.EditEntry(ctx, index, editGirth, editLength, editPrice)
	if err != nil {
		return err
	}
	current, err := a.Bills.Current(ctx)
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	w.Success("Entry %d updated", index+1)
	view.DisplayEntry(index+1, entry)
	view.DisplayTotals(current.Totals())
	return nil
}

func runBillDelete(cmd *cobra.Command, args []string) error {
	index, err := parseSlno(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Bills.DeleteEntry(ctx, index); err != nil {
		return err
	}
	current, err := a.Bills.Current(ctx)
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	w.Success("Entry %d removed", index+1)
	view.DisplayTotals(current.Totals())
	return nil
}

func runBillClear(cmd *cobra.Command, args []string) error {
	if !clearYes {
		fmt.Fprintln(cmd.OutOrStdout(), "This removes every entry from the current bill.")
		fmt.Fprint(cmd.OutOrStdout(), "Type 'yes' to confirm: ")
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		if strings.TrimSpace(strings.ToLower(response)) != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Bills.Clear(ctx); err != nil {
		return err
	}
	newWriter(cmd).Success("Bill cleared")
	return nil
}

func runBillExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if exportFmt == "" {
		exportFmt = a.Config.Export.DefaultFormat
	}
	format, err := export.ParseFormat(exportFmt)
	if err != nil {
		return err
	}

	exporter := a.Exporter
	if exportDir != "" {
		exporter = export.NewExporter(exportDir, a.Publisher, a.Log.Named("export"))
	}

	doc, err := a.BillDocument(ctx, exportName)
	if err != nil {
		return err
	}
	path, err := exporter.Save(ctx, doc, format)
	if err != nil {
		return err
	}
	newWriter(cmd).Success("Bill saved to %s", path)
	return nil
}

// parseSlno converts a 1-based serial number to an index
func parseSlno(text string) (int, error) {
	slno, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errors.Validationf("Invalid row selected: %s", text)
	}
	return slno - 1, nil
}
