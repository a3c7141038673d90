package extractor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// solidImage returns a uniformly colored test image
func solidImage(width, height int, c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// gradientImage returns an image with a horizontal brightness ramp
func gradientImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := uint8(x * 255 / width) // #nosec G115 -- bounded by 255
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) string {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	defer func() { _ = file.Close() }()
	if err := png.Encode(file, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		model   string
		wantDim int
		wantErr bool
	}{
		{"default model", "", 512, false},
		{"rgb512", "rgb512", 512, false},
		{"rgb128", "rgb128", 128, false},
		{"unknown model", "unknown-model", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := New(tt.model, 224)
			if tt.wantErr {
				if err == nil {
					t.Error("New() should fail for unknown model")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if ext.Dimension() != tt.wantDim {
				t.Errorf("Dimension() = %d, want %d", ext.Dimension(), tt.wantDim)
			}
		})
	}
}

func TestExtractImageUnitNorm(t *testing.T) {
	ext, err := New("rgb512", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	vector, err := ext.ExtractImage(context.Background(), gradientImage(100, 80))
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}

	if len(vector) != 512 {
		t.Fatalf("vector length = %d, want 512", len(vector))
	}

	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(sum)-1.0) > 1e-4 {
		t.Errorf("vector magnitude = %f, want 1.0", math.Sqrt(sum))
	}
}

func TestExtractImageDeterministic(t *testing.T) {
	ext, err := New("rgb128", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	img := gradientImage(120, 90)
	v1, err := ext.ExtractImage(context.Background(), img)
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}
	v2, err := ext.ExtractImage(context.Background(), img)
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}

	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("vectors differ at index %d: %f vs %f", i, v1[i], v2[i])
		}
	}
}

func TestExtractImageDistinguishesImages(t *testing.T) {
	ext, err := New("rgb512", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	red, err := ext.ExtractImage(context.Background(), solidImage(64, 64, color.RGBA{R: 255, A: 255}))
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}
	blue, err := ext.ExtractImage(context.Background(), solidImage(64, 64, color.RGBA{B: 255, A: 255}))
	if err != nil {
		t.Fatalf("ExtractImage() error = %v", err)
	}

	var dot float64
	for i := range red {
		dot += float64(red[i]) * float64(blue[i])
	}
	if dot > 0.99 {
		t.Errorf("red and blue images should not be near-identical (dot = %f)", dot)
	}
}

func TestExtractFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, filepath.Join(dir, "ramp.png"), gradientImage(100, 100))

	ext, err := New("rgb512", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	features, err := ext.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if features.Model != "rgb512" {
		t.Errorf("model = %s, want rgb512", features.Model)
	}
	if features.Dimension != 512 || len(features.Vector) != 512 {
		t.Errorf("dimension = %d, vector length = %d, want 512", features.Dimension, len(features.Vector))
	}
	if features.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestExtractMissingFile(t *testing.T) {
	ext, err := New("rgb512", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := ext.Extract(context.Background(), "/nonexistent/image.png"); err == nil {
		t.Error("Extract() should fail for a missing file")
	}
}

func TestExtractCancelledContext(t *testing.T) {
	ext, err := New("rgb512", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ext.ExtractImage(ctx, solidImage(64, 64, color.RGBA{A: 255})); !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractImage() error = %v, want context.Canceled", err)
	}
}

func TestBatchRun(t *testing.T) {
	dir := t.TempDir()
	good1 := writePNG(t, filepath.Join(dir, "a.png"), gradientImage(80, 80))
	good2 := writePNG(t, filepath.Join(dir, "b.png"), solidImage(80, 80, color.RGBA{G: 200, A: 255}))
	missing := filepath.Join(dir, "missing.png")

	ext, err := New("rgb128", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	batch := NewBatch(ext, 2)

	var mu sync.Mutex
	results := make(map[string]Result)
	err = batch.Run(context.Background(), []Job{
		{ID: "a", Path: good1},
		{ID: "b", Path: good2},
		{ID: "c", Path: missing},
	}, func(r Result) {
		mu.Lock()
		defer mu.Unlock()
		results[r.Job.ID] = r
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results["a"].Err != nil || results["b"].Err != nil {
		t.Errorf("valid images should succeed: a=%v b=%v", results["a"].Err, results["b"].Err)
	}
	if results["c"].Err == nil {
		t.Error("missing image should produce an error result")
	}
	if results["c"].Features != nil {
		t.Error("failed extraction should not carry features")
	}
}

func TestBatchRunEmpty(t *testing.T) {
	ext, err := New("rgb128", 224)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := NewBatch(ext, 4).Run(context.Background(), nil, nil); err != nil {
		t.Errorf("Run() with no jobs should succeed, got %v", err)
	}
}

func TestModels(t *testing.T) {
	models := Models()
	if len(models) != 2 {
		t.Fatalf("Models() = %v, want 2 entries", models)
	}
	if models[0] != "rgb128" || models[1] != "rgb512" {
		t.Errorf("Models() = %v, want sorted [rgb128 rgb512]", models)
	}
}
