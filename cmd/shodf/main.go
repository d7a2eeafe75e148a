package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shodf/internal/logger"
	"shodf/pkg/config"
	"shodf/pkg/sh"
	"shodf/pkg/sphere"
)

var (
	configPath string
	logLevel   string
	logFile    string

	// Harmonics overrides shared by basis and phantom
	orderFlag   int
	toolkitFlag string
	coresFlag   int

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shodf",
	Short: "Spherical harmonic coefficient import and ODF reconstruction",
	Long: `shodf reconstructs orientation distribution functions from spherical
harmonic coefficient images written in the FSL or MRtrix convention.

ODFs are sampled on a geodesic sphere (252 directions by default).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := applyOverrides(cmd); err != nil {
			return err
		}

		fileCfg := logger.FileConfig{}
		if cfg.Logging.File != "" {
			fileCfg = logger.DefaultFileConfig(cfg.Logging.File)
		}
		log, err = logger.New(cfg.Logging.Level, fileCfg, true)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// applyOverrides copies explicitly set flags over the loaded configuration
func applyOverrides(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-file") {
		cfg.Logging.File = logFile
	}
	if flags.Changed("order") {
		cfg.Harmonics.Order = orderFlag
	}
	if flags.Changed("toolkit") {
		tk, err := sh.ParseToolkit(toolkitFlag)
		if err != nil {
			return err
		}
		cfg.Harmonics.Toolkit = tk
	}
	if flags.Changed("cores") {
		cfg.Processing.NumCores = coresFlag
	}
	if flags.Changed("frequency") {
		cfg.Sampling.Frequency = frequencyFlag
	}
	return cfg.Validate()
}

// directionSet returns the sampling scheme selected by the configuration
func directionSet() (*sphere.DirectionSet, error) {
	if cfg.Sampling.Frequency == sphere.DefaultFrequency {
		return sphere.Default(), nil
	}
	return sphere.Geodesic(cfg.Sampling.Frequency)
}

func addHarmonicsFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&orderFlag, "order", 4, "Maximum even SH order")
	cmd.Flags().StringVar(&toolkitFlag, "toolkit", "FSL", "SH convention: FSL or MRTRIX")
	cmd.Flags().IntVar(&coresFlag, "cores", runtime.NumCPU(), "Number of CPU cores to use")
	addSamplingFlags(cmd)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "shodf.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this rotating file as well")

	addHarmonicsFlags(basisCmd)
	addHarmonicsFlags(phantomCmd)
	addSamplingFlags(directionsCmd)

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(directionsCmd)
	rootCmd.AddCommand(basisCmd)
	rootCmd.AddCommand(phantomCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
