package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/imgseek/imgseek/internal/catalog"
	"github.com/imgseek/imgseek/internal/extractor"
	"github.com/imgseek/imgseek/internal/imaging"
	"github.com/imgseek/imgseek/internal/logger"
	"github.com/imgseek/imgseek/internal/vectorstore"
)

// Options tune a single similarity search
type Options struct {
	TopK      int     // maximum results, <= 0 uses the default
	Threshold float64 // minimum cosine similarity, < 0 uses the default
}

// DefaultTopK and DefaultThreshold apply when Options leaves them unset
const (
	DefaultTopK      = 20
	DefaultThreshold = 0.7
)

// Match is one ranked search hit
type Match struct {
	Image *catalog.ImageRecord `json:"image"`
	Score float64              `json:"score"`
	Rank  int                  `json:"rank"`
}

// Engine answers similarity queries over the cataloged images. The index
// is an in-memory vector store warmed from the catalog's stored features.
type Engine struct {
	catalog    *catalog.Store
	extractor  extractor.Extractor
	index      *vectorstore.MemoryStore
	log        *logger.Logger
	logQueries bool
}

// NewEngine creates a search engine over a catalog with a given
// extractor. indexOpts configure the in-memory index, for example
// vectorstore.WithPersistence to snapshot it on Close.
func NewEngine(cat *catalog.Store, ext extractor.Extractor, log *logger.Logger, logQueries bool, indexOpts ...vectorstore.MemoryStoreOption) *Engine {
	if log == nil {
		log = logger.New("search", nil)
	}
	return &Engine{
		catalog:    cat,
		extractor:  ext,
		index:      vectorstore.NewMemoryStore(indexOpts...),
		log:        log.WithComponent("search"),
		logQueries: logQueries,
	}
}

// Close releases the index, writing the snapshot when persistence is
// configured
func (e *Engine) Close() error {
	return e.index.Close()
}

// WarmIndex loads all stored embeddings for the engine's model into the
// in-memory index. Returns the number of vectors indexed. Entries whose
// image record has gone missing are skipped.
func (e *Engine) WarmIndex() (int, error) {
	records, err := e.catalog.LoadFeatures(e.extractor.Name())
	if err != nil {
		return 0, fmt.Errorf("failed to load stored features: %w", err)
	}

	count := 0
	for _, rec := range records {
		img, err := e.catalog.GetImage(rec.ImageID)
		if err != nil {
			return count, fmt.Errorf("failed to resolve image %s: %w", rec.ImageID, err)
		}
		if img == nil {
			e.log.Warn("skipping orphaned features for image %s", rec.ImageID)
			continue
		}

		err = e.index.Store(vectorstore.VectorEntry{
			ID:       rec.ImageID,
			Path:     img.Path,
			Category: img.Category,
			Seed:     img.Seed,
			Vector:   rec.Vector,
		})
		if err != nil {
			return count, fmt.Errorf("failed to index image %s: %w", rec.ImageID, err)
		}
		count++
	}

	e.log.Info("index warmed", logger.Count(count))
	return count, nil
}

// IndexSize returns the number of vectors currently indexed
func (e *Engine) IndexSize() int {
	return e.index.Size()
}

// Search embeds the query image and returns cataloged images ranked by
// cosine similarity, best first. The query image itself is excluded by
// content hash, so searching with a cataloged image never returns it.
func (e *Engine) Search(ctx context.Context, queryPath string, opts Options) ([]Match, error) {
	start := time.Now()

	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	threshold := opts.Threshold
	if threshold < 0 {
		threshold = DefaultThreshold
	}

	queryHash, err := imaging.HashFile(queryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash query image: %w", err)
	}

	features, err := e.extractor.Extract(ctx, queryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract query features: %w", err)
	}

	e.log.Debug("query embedded in %v (model=%s, dim=%d)",
		features.Duration, features.Model, features.Dimension)

	// Over-fetch so threshold filtering and self-exclusion still leave
	// topK candidates.
	hits, err := e.index.Search(features.Vector, 0)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	matches := make([]Match, 0, topK)
	for _, hit := range hits {
		if hit.ID == queryHash {
			continue
		}
		if float64(hit.Score) < threshold {
			break // hits are sorted descending
		}

		img, err := e.catalog.GetImage(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve match %s: %w", hit.ID, err)
		}
		if img == nil {
			continue
		}

		matches = append(matches, Match{
			Image: img,
			Score: float64(hit.Score),
			Rank:  len(matches) + 1,
		})
		if len(matches) >= topK {
			break
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	duration := time.Since(start)
	e.log.InfoWithFields("search complete", []logger.Field{
		logger.F("query", queryPath),
		logger.Count(len(matches)),
		logger.Duration(duration),
	})

	if e.logQueries {
		if err := e.recordQuery(queryPath, queryHash, threshold, topK, duration, matches); err != nil {
			e.log.Warn("failed to record search query: %v", err)
		}
	}

	return matches, nil
}

// recordQuery persists the query and its ranked results to the catalog
func (e *Engine) recordQuery(queryPath, queryHash string, threshold float64, topK int, duration time.Duration, matches []Match) error {
	results := make([]catalog.QueryResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, catalog.QueryResult{
			ImageID: m.Image.ID,
			Rank:    m.Rank,
			Score:   m.Score,
		})
	}

	return e.catalog.LogSearch(&catalog.QueryLog{
		QueryPath:  queryPath,
		QueryHash:  queryHash,
		Model:      e.extractor.Name(),
		Threshold:  threshold,
		MaxResults: topK,
		Duration:   duration,
		Results:    results,
	})
}
