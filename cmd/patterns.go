package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/singlepixel/internal/imageio"
	"github.com/cwbudde/singlepixel/internal/spi"
)

var (
	patternPx     int
	patternOutDir string
	patternLimit  int
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Export the modulator patterns as PNG masks",
	Long: `Writes the rows of the non-negative Hadamard decomposition H+ as px×px
binary masks, white where the modulator passes light.`,
	RunE: runPatterns,
}

func init() {
	patternsCmd.Flags().IntVar(&patternPx, "px", 4, "Pattern resolution (px*px must be a power of two)")
	patternsCmd.Flags().StringVar(&patternOutDir, "out-dir", "patterns", "Output directory")
	patternsCmd.Flags().IntVar(&patternLimit, "limit", 16, "Maximum number of patterns to export (0 = all)")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	warnLargeResolution(patternPx)

	basis, err := spi.BuildBasis(patternPx)
	if err != nil {
		return err
	}

	n, err := exportPatterns(basis, patternOutDir, patternLimit)
	if err != nil {
		return err
	}

	fmt.Printf("Wrote %d of %d patterns to %s\n", n, basis.Order, patternOutDir)
	return nil
}

// exportPatterns writes up to limit masks as pattern_NNNN.png and returns how
// many were written.
func exportPatterns(basis *spi.Basis, dir string, limit int) (int, error) {
	count := basis.Order
	if limit > 0 && limit < count {
		count = limit
	}

	for i := 0; i < count; i++ {
		pattern, err := basis.Pattern(i)
		if err != nil {
			return i, err
		}
		path := filepath.Join(dir, fmt.Sprintf("pattern_%04d.png", i))
		if err := imageio.SavePNG(path, imageio.Mask(pattern)); err != nil {
			return i, err
		}
		slog.Debug("Pattern written", "index", i, "path", path)
	}
	return count, nil
}
