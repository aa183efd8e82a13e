package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"timbercalc/adapters/pricelist"
	"timbercalc/internal/auth"
	"timbercalc/internal/config"
	"timbercalc/internal/errors"
)

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Price table administration",
	Long: `Price table administration.

The table maps each girth band and catalog length to a unit price.
Commands that change the table require the admin passcode.`,
}

var tableShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the price grid",
	RunE:  runTableShow,
}

var tableDefineCmd = &cobra.Command{
	Use:   "define",
	Short: "Set the girth bands and catalog lengths",
	Long: `Set the girth bands and catalog lengths.

Bands are "start-end" pairs separated by commas and must be contiguous:
each band starts where the previous one ends. Lengths are a comma
separated list. Existing prices are kept only when the bands and lengths
are unchanged.`,
	Example: `  timbercalc table define --ranges "0-18, 18-24, 24-36" --lengths "8, 10, 12" --passcode 7898`,
	RunE:    runTableDefine,
}

var tablePriceCmd = &cobra.Command{
	Use:     "price",
	Short:   "Set the unit price of one cell",
	Example: "  timbercalc table price --range 0-18 --length 10 --price 120 --passcode 7898",
	RunE:    runTablePrice,
}

var tableImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the price table from a JSON, YAML or HCL file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTableImport,
}

var tableExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the price table to a file",
	Long: `Write the price table to a file.

Without a file argument a timestamped file is created in the price list
directory from the config. The format follows --format, or the file
extension when --format is not given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTableExport,
}

var (
	tablePasscode string
	tableJSON     bool
	defineRanges  string
	defineLengths string
	priceRange    string
	priceLength   float64
	priceValue    string
	tableFormat   string
)

func init() {
	rootCmd.AddCommand(tableCmd)
	tableCmd.AddCommand(tableShowCmd)
	tableCmd.AddCommand(tableDefineCmd)
	tableCmd.AddCommand(tablePriceCmd)
	tableCmd.AddCommand(tableImportCmd)
	tableCmd.AddCommand(tableExportCmd)

	for _, c := range []*cobra.Command{tableDefineCmd, tablePriceCmd, tableImportCmd} {
		c.Flags().StringVar(&tablePasscode, "passcode", "", "admin passcode [REQUIRED]")
	}

	tableShowCmd.Flags().BoolVar(&tableJSON, "json", false, "print the table as JSON")

	tableDefineCmd.Flags().StringVar(&defineRanges, "ranges", "", "girth bands, e.g. \"0-18, 18-24\"")
	tableDefineCmd.Flags().StringVar(&defineLengths, "lengths", "", "catalog lengths, e.g. \"8, 10, 12\"")
	tableDefineCmd.MarkFlagRequired("ranges")
	tableDefineCmd.MarkFlagRequired("lengths")

	tablePriceCmd.Flags().StringVar(&priceRange, "range", "", "girth band, e.g. 0-18 [REQUIRED]")
	tablePriceCmd.Flags().Float64Var(&priceLength, "length", 0, "catalog length [REQUIRED]")
	tablePriceCmd.Flags().StringVar(&priceValue, "price", "", "unit price [REQUIRED]")
	tablePriceCmd.MarkFlagRequired("range")
	tablePriceCmd.MarkFlagRequired("length")
	tablePriceCmd.MarkFlagRequired("price")

	tableImportCmd.Flags().StringVarP(&tableFormat, "format", "f", "", "file format (json, yaml, hcl)")
	tableExportCmd.Flags().StringVarP(&tableFormat, "format", "f", "", "file format (json, yaml, hcl, xlsx)")
}

// requirePasscode checks --passcode before any change is made
func requirePasscode() error {
	return auth.CheckPasscode(config.Get().Server.Passcode, tablePasscode)
}

func runTableShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.Pricing.Current(ctx)
	if err != nil {
		return err
	}
	w, view := newBillView(cmd)
	if tableJSON {
		return view.JSONOutput(table.Data())
	}
	w.Header("Price Table")
	view.DisplayPriceTable(table)
	return nil
}

func runTableDefine(cmd *cobra.Command, args []string) error {
	if err := requirePasscode(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	table, cleared, err := a.Pricing.Define(ctx, defineRanges, defineLengths)
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	w.Success("Configuration saved: %d girth ranges, %d lengths", len(table.Ranges()), len(table.Lengths()))
	if cleared {
		w.Warning("Dimensions changed. Existing unit prices were cleared.")
	}
	view.DisplayPriceTable(table)
	return nil
}

func runTablePrice(cmd *cobra.Command, args []string) error {
	if err := requirePasscode(); err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.Pricing.SetPriceFor(ctx, priceRange, priceLength, priceValue)
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	w.Success("Price for %s at %s ft updated", priceRange, strconv.FormatFloat(priceLength, 'f', -1, 64))
	view.DisplayPriceTable(table)
	return nil
}

func runTableImport(cmd *cobra.Command, args []string) error {
	if err := requirePasscode(); err != nil {
		return err
	}

	path := args[0]
	format, err := listFormat(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(errors.TypeNotFound, "Could not open "+path, err)
	}
	defer f.Close()

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	table, err := a.ImportPriceList(ctx, f, format)
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	w.Success("Price list imported from %s", path)
	view.DisplayPriceTable(table)
	return nil
}

func runTableExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		path   string
		format pricelist.Format
	)
	if len(args) == 1 {
		path = args[0]
		if format, err = listFormat(path); err != nil {
			return err
		}
	} else {
		if format, err = pricelist.ParseFormat(tableFormat); err != nil {
			return err
		}
		path = filepath.Join(a.Config.Export.PriceListDirectory, pricelist.FileName(time.Now(), format))
	}

	// Encode first so a failed export leaves no empty file behind
	var buf bytes.Buffer
	if err := a.ExportPriceList(ctx, &buf, format); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Storage("create "+filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Storage("write "+path, err)
	}

	newWriter(cmd).Success("Price list exported to %s", path)
	return nil
}

// listFormat returns --format when set, otherwise the format implied by path
func listFormat(path string) (pricelist.Format, error) {
	if tableFormat != "" {
		return pricelist.ParseFormat(tableFormat)
	}
	return pricelist.DetectFormat(path)
}
