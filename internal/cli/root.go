package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/config"
	"github.com/imgseek/imgseek/internal/logger"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	outputFmt string
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imgseek",
		Short: "Content-Based Image Search Tool",
		Long: `ImgSeek is a content-based image search tool. It catalogs a library of
seed images, extracts a compact feature vector from each one, and answers
"find images that look like this" queries ranked by cosine similarity.

Typical workflow:
  imgseek load ./photos        catalog seed images
  imgseek extract              compute feature vectors
  imgseek search query.jpg     find visually similar images`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (text, json, csv)")

	// Add subcommands
	rootCmd.AddCommand(newLoadCommand())
	rootCmd.AddCommand(newExtractCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newStatsCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			fmt.Printf("ImgSeek %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// loadConfig loads the effective configuration and applies flag overrides
func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	cfg, err := loader.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		cfg.Output.Verbose = true
	}
	if noColor {
		cfg.Output.ColorMode = "never"
	}
	if outputFmt != "" {
		cfg.Output.DefaultFormat = outputFmt
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// newLogger creates a component logger gated on the effective verbosity
func newLogger(component string, cfg *config.Config) *logger.Logger {
	return logger.NewWithCallback(component, func() bool {
		return verbose || cfg.Output.Verbose
	})
}

// colorEnabled resolves the color mode against the terminal
func colorEnabled(cfg *config.Config) bool {
	switch cfg.Output.ColorMode {
	case "always":
		return true
	case "never":
		return false
	default:
		return isatty.IsTerminal(os.Stdout.Fd())
	}
}

func isVerbose() bool {
	return verbose
}

// Helper function to check if file exists
func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
