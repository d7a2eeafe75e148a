package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shodf/pkg/config"
	"shodf/pkg/sh"
)

var (
	frequencyFlag int
	printRows     bool
)

func addSamplingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&frequencyFlag, "frequency", 5, "Geodesic subdivision frequency (10f²+2 directions)")
}

var directionsCmd = &cobra.Command{
	Use:   "directions",
	Short: "Print the ODF sampling directions and their spherical coordinates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := directionSet()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "index\tx\ty\tz\ttheta\tphi\t")
		for i, c := range set.Spherical() {
			d := set.At(i)
			fmt.Fprintf(w, "%d\t%.6f\t%.6f\t%.6f\t%.6f\t%.6f\t\n", i, d.X, d.Y, d.Z, c.Theta, c.Phi)
		}
		return w.Flush()
	},
}

var basisCmd = &cobra.Command{
	Use:   "basis",
	Short: "Build the SH basis matrix for the configured order and toolkit",
	Long: `Build the SH basis matrix with one row per sampling direction and one
column per even-degree coefficient. With --rows the matrix is printed as CSV.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		set, err := directionSet()
		if err != nil {
			return err
		}

		basis, err := sh.NewBasis(cfg.Harmonics.Order, cfg.Harmonics.Toolkit, set.Spherical())
		if err != nil {
			return err
		}
		rows, cols := basis.Dims()
		log.Info("built SH basis",
			zap.Int("order", cfg.Harmonics.Order),
			zap.Stringer("toolkit", cfg.Harmonics.Toolkit),
			zap.Int("rows", rows),
			zap.Int("cols", cols))

		out := cmd.OutOrStdout()
		if !printRows {
			fmt.Fprintf(out, "basis %dx%d (order %d, %v)\n", rows, cols, cfg.Harmonics.Order, cfg.Harmonics.Toolkit)
			return nil
		}
		for p := 0; p < rows; p++ {
			for j := 0; j < cols; j++ {
				if j > 0 {
					fmt.Fprint(out, ",")
				}
				fmt.Fprintf(out, "%.17g", basis.At(p, j))
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

func init() {
	basisCmd.Flags().BoolVar(&printRows, "rows", false, "Print the matrix as CSV")
}
