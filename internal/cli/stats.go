package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imgseek/imgseek/internal/formatter"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog statistics",
		Long: `Display counters for the image catalog: total images, seed images,
extraction progress, failures, recorded search queries, and a breakdown
by category.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats()
		},
	}
}

func runStats() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats()
	if err != nil {
		return err
	}

	fmtr, err := formatter.New(cfg.Output.DefaultFormat, colorEnabled(cfg))
	if err != nil {
		return err
	}

	out, err := fmtr.FormatStats(stats)
	if err != nil {
		return err
	}

	fmt.Print(string(out))
	return nil
}
