package extractor

import (
	"context"
	"fmt"
	"image"
	"sort"
	"time"
)

// Features holds the embedding produced for one image
type Features struct {
	Vector    []float32     `json:"vector"`
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
	Duration  time.Duration `json:"duration"`
}

// Extractor converts an image into a fixed-length embedding vector.
// Vectors from the same model are L2-normalized and comparable by
// cosine similarity.
type Extractor interface {
	Extract(ctx context.Context, path string) (*Features, error)
	ExtractImage(ctx context.Context, img image.Image) ([]float32, error)
	Dimension() int
	Name() string
}

// factory builds an extractor for a given input size
type factory func(inputSize int) Extractor

var registry = map[string]factory{
	"rgb512": func(inputSize int) Extractor { return NewColorGrid("rgb512", 8, inputSize) },
	"rgb128": func(inputSize int) Extractor { return NewColorGrid("rgb128", 4, inputSize) },
}

// DefaultModel is used when no model is configured
const DefaultModel = "rgb512"

// New creates an extractor by model name
func New(model string, inputSize int) (Extractor, error) {
	if model == "" {
		model = DefaultModel
	}
	build, ok := registry[model]
	if !ok {
		return nil, fmt.Errorf("unsupported model: %s (available: %v)", model, Models())
	}
	if inputSize <= 0 {
		inputSize = 224
	}
	return build(inputSize), nil
}

// Models returns the registered model names in sorted order
func Models() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
