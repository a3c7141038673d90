package extractor

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"time"

	// Register JPEG and PNG decoders for image.Decode.
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// valuesPerCell is the feature width of one grid cell: mean R, mean G,
// mean B, luminance standard deviation, and a 4-bin gradient-orientation
// histogram.
const valuesPerCell = 8

// ColorGrid is a deterministic pure-Go embedder. It resizes an image to a
// fixed square, splits it into a grid, and describes each cell by its color
// statistics and edge-orientation distribution. The concatenated vector is
// L2-normalized so cosine similarity reduces to a dot product.
type ColorGrid struct {
	name      string
	grid      int
	inputSize int
}

// NewColorGrid creates a grid embedder. grid is the number of cells per
// edge, so the output dimension is grid*grid*8.
func NewColorGrid(name string, grid, inputSize int) *ColorGrid {
	return &ColorGrid{
		name:      name,
		grid:      grid,
		inputSize: inputSize,
	}
}

// Name returns the model name
func (c *ColorGrid) Name() string {
	return c.name
}

// Dimension returns the embedding length
func (c *ColorGrid) Dimension() int {
	return c.grid * c.grid * valuesPerCell
}

// Extract decodes an image file and embeds it
func (c *ColorGrid) Extract(ctx context.Context, path string) (*Features, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path) //nolint:gosec // Path comes from catalog or CLI args
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	vector, err := c.ExtractImage(ctx, img)
	if err != nil {
		return nil, err
	}

	return &Features{
		Vector:    vector,
		Model:     c.name,
		Dimension: len(vector),
		Duration:  time.Since(start),
	}, nil
}

// ExtractImage embeds an already decoded image
func (c *ColorGrid) ExtractImage(ctx context.Context, img image.Image) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := uint(c.inputSize) // #nosec G115 -- inputSize is validated positive
	scaled := resize.Resize(size, size, img, resize.Lanczos3)

	r, g, b, luma := planes(scaled, c.inputSize)

	vector := make([]float32, 0, c.Dimension())
	for cy := 0; cy < c.grid; cy++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for cx := 0; cx < c.grid; cx++ {
			x0 := cx * c.inputSize / c.grid
			x1 := (cx + 1) * c.inputSize / c.grid
			y0 := cy * c.inputSize / c.grid
			y1 := (cy + 1) * c.inputSize / c.grid

			vector = append(vector, c.cellFeatures(r, g, b, luma, x0, x1, y0, y1)...)
		}
	}

	return normalize(vector), nil
}

// cellFeatures computes the 8 feature values for one grid cell
func (c *ColorGrid) cellFeatures(r, g, b, luma []float64, x0, x1, y0, y1 int) []float32 {
	n := float64((x1 - x0) * (y1 - y0))

	var sumR, sumG, sumB, sumL, sumL2 float64
	for y := y0; y < y1; y++ {
		row := y * c.inputSize
		for x := x0; x < x1; x++ {
			i := row + x
			sumR += r[i]
			sumG += g[i]
			sumB += b[i]
			sumL += luma[i]
			sumL2 += luma[i] * luma[i]
		}
	}

	meanL := sumL / n
	variance := sumL2/n - meanL*meanL
	if variance < 0 {
		variance = 0
	}

	// 4-bin gradient-orientation histogram, magnitude weighted. Central
	// differences; the one-pixel border of the cell is ignored.
	var bins [4]float64
	var totalMag float64
	for y := maxInt(y0, 1); y < minInt(y1, c.inputSize-1); y++ {
		row := y * c.inputSize
		for x := maxInt(x0, 1); x < minInt(x1, c.inputSize-1); x++ {
			gx := luma[row+x+1] - luma[row+x-1]
			gy := luma[row+c.inputSize+x] - luma[row-c.inputSize+x]
			mag := math.Hypot(gx, gy)
			if mag == 0 {
				continue
			}

			// Orientation folded into [0, pi), quantized into 4 bins.
			angle := math.Atan2(gy, gx)
			if angle < 0 {
				angle += math.Pi
			}
			bin := int(angle / (math.Pi / 4))
			if bin > 3 {
				bin = 3
			}
			bins[bin] += mag
			totalMag += mag
		}
	}
	if totalMag > 0 {
		for i := range bins {
			bins[i] /= totalMag
		}
	}

	return []float32{
		float32(sumR / n),
		float32(sumG / n),
		float32(sumB / n),
		float32(math.Sqrt(variance)),
		float32(bins[0]),
		float32(bins[1]),
		float32(bins[2]),
		float32(bins[3]),
	}
}

// planes extracts normalized R, G, B and luminance planes from an image
func planes(img image.Image, size int) (r, g, b, luma []float64) {
	r = make([]float64, size*size)
	g = make([]float64, size*size)
	b = make([]float64, size*size)
	luma = make([]float64, size*size)

	bounds := img.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			pr, pg, pb, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*size + x
			r[i] = float64(pr) / 65535.0
			g[i] = float64(pg) / 65535.0
			b[i] = float64(pb) / 65535.0
			// ITU-R BT.601 luminance weights
			luma[i] = 0.299*r[i] + 0.587*g[i] + 0.114*b[i]
		}
	}
	return r, g, b, luma
}

// normalize scales a vector to unit length
func normalize(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
