// Package cmd provides the CLI commands for timbercalc.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"timbercalc/core/ui"
	"timbercalc/internal/app"
	"timbercalc/internal/config"
	"timbercalc/internal/logging"
)

// Version is the CLI version, set at build time with -ldflags
var Version = "0.1.0"

var (
	cfgFile string
	verbose bool
	noColor bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "timbercalc",
	Short: "Log volume and price calculator for timber merchants",
	Long: `timbercalc computes log volumes from girth and length, prices them from a
girth-band by length price table, and keeps a running bill that can be
exported as PDF or XLSX.

Examples:
  timbercalc table define --ranges "0-18, 18-24" --lengths "8, 10, 12" --passcode 7898
  timbercalc table price --range 0-18 --length 10 --price 120 --passcode 7898
  timbercalc calc 12 10
  timbercalc bill export --client Ravi --format xlsx`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func initConfig() {
	// A missing .env is normal
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openApp builds the services from the loaded config. Callers must Close it.
func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, config.Get(), logging.Named("cli"))
}

func newWriter(cmd *cobra.Command) *ui.Writer {
	w := ui.NewWriter(cmd.OutOrStdout(), noColor)
	if verbose {
		w.SetVerbosity(2)
	}
	return w
}

func newBillView(cmd *cobra.Command) (*ui.Writer, *ui.BillView) {
	w := newWriter(cmd)
	return w, ui.NewBillView(w, "")
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "timbercalc version %s\n", Version)
	},
}

// configCmd manages configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, view := newBillView(cmd)
		return view.JSONOutput(config.Get())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration to a file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "timbercalc.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		newWriter(cmd).Success("Wrote %s", path)
		return nil
	},
}
