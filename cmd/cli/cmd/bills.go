package cmd

import (
	"strconv"

	"github.com/spf13/cobra"

	"timbercalc/adapters/export"
	"timbercalc/internal/config"
)

var billsCmd = &cobra.Command{
	Use:   "bills",
	Short: "Find saved bill files",
}

var billsSearchCmd = &cobra.Command{
	Use:   "search",
	Short: "List saved bills, newest first",
	Long: `List the PDF and XLSX bills in the export directory.

--client matches any part of the client name, ignoring case.
--date matches any part of the yyyyMMdd_HHmmss stamp, so "202312"
finds every bill from December 2023.`,
	RunE: runBillsSearch,
}

var (
	searchClient string
	searchDate   string
	searchDir    string
	searchJSON   bool
)

func init() {
	rootCmd.AddCommand(billsCmd)
	billsCmd.AddCommand(billsSearchCmd)

	billsSearchCmd.Flags().StringVar(&searchClient, "client", "", "client name filter")
	billsSearchCmd.Flags().StringVar(&searchDate, "date", "", "date stamp filter")
	billsSearchCmd.Flags().StringVar(&searchDir, "dir", "", "bill directory (default from config)")
	billsSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func runBillsSearch(cmd *cobra.Command, args []string) error {
	dir := searchDir
	if dir == "" {
		dir = config.Get().Export.Directory
	}

	bills, err := export.Search(dir, export.Query{Client: searchClient, Date: searchDate})
	if err != nil {
		return err
	}

	w, view := newBillView(cmd)
	if searchJSON {
		if bills == nil {
			bills = []export.SavedBill{}
		}
		return view.JSONOutput(bills)
	}
	if len(bills) == 0 {
		w.Info("No bills found in %s", dir)
		return nil
	}

	table := w.NewTable("Client", "Date", "Format", "Size", "File").AlignRight(3)
	for _, b := range bills {
		table.AddRow(
			b.Client,
			b.CreatedAt.Format("2006-01-02 15:04:05"),
			string(b.Format),
			strconv.FormatInt(b.Size, 10),
			b.FileName,
		)
	}
	table.Render()
	w.Println("")
	w.Println("%d bill(s) in %s", len(bills), dir)
	return nil
}
