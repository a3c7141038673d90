package vectorstore

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// NewMemoryStore creates a new in-memory vector store
func NewMemoryStore(options ...MemoryStoreOption) *MemoryStore {
	opts := MemoryStoreOptions{
		AutoSaveInterval: 5 * time.Minute,
		MaxVectors:       100000,
		NormalizeVectors: false,
	}

	for _, option := range options {
		option(&opts)
	}

	store := &MemoryStore{
		vectors: make(map[string]VectorEntry),
		options: opts,
		done:    make(chan struct{}),
	}

	// Start auto-save routine if enabled
	if opts.AutoSave && opts.AutoSaveInterval > 0 {
		store.ticker = time.NewTicker(opts.AutoSaveInterval)
		go store.autoSaveRoutine()
	}

	return store
}

// Store adds an embedding entry to the store
func (ms *MemoryStore) Store(entry VectorEntry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if entry.ID == "" {
		return fmt.Errorf("vector entry requires an ID")
	}

	// Check if we've reached the maximum number of vectors
	if ms.options.MaxVectors > 0 && len(ms.vectors) >= ms.options.MaxVectors {
		if _, exists := ms.vectors[entry.ID]; !exists {
			return fmt.Errorf("vector store is full (max %d vectors)", ms.options.MaxVectors)
		}
	}

	if ms.options.NormalizeVectors {
		entry.Vector = NormalizeVector(entry.Vector)
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	ms.vectors[entry.ID] = entry
	return nil
}

// Search finds the most similar vectors using cosine similarity
func (ms *MemoryStore) Search(vector []float32, topK int) ([]SearchResult, error) {
	return ms.SearchWithFilter(vector, topK, nil)
}

// SearchWithFilter searches vectors that pass a custom filter function
func (ms *MemoryStore) SearchWithFilter(vector []float32, topK int, filter func(VectorEntry) bool) ([]SearchResult, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	if len(ms.vectors) == 0 {
		return []SearchResult{}, nil
	}

	queryVector := vector
	if ms.options.NormalizeVectors {
		queryVector = NormalizeVector(vector)
	}

	type scoredResult struct {
		entry SearchResult
		score float32
	}

	results := make([]scoredResult, 0, len(ms.vectors))
	for _, entry := range ms.vectors {
		if filter != nil && !filter(entry) {
			continue
		}

		// Entries embedded with a different model have a different
		// dimension and cannot be compared.
		if len(entry.Vector) != len(queryVector) {
			continue
		}

		similarity := CosineSimilarity(queryVector, entry.Vector)

		results = append(results, scoredResult{
			entry: SearchResult{
				ID:       entry.ID,
				Score:    similarity,
				Path:     entry.Path,
				Category: entry.Category,
				Vector:   entry.Vector,
			},
			score: similarity,
		})
	}

	// Sort by similarity (descending)
	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if topK > len(results) || topK <= 0 {
		topK = len(results)
	}

	searchResults := make([]SearchResult, topK)
	for i := 0; i < topK; i++ {
		searchResults[i] = results[i].entry
	}

	return searchResults, nil
}

// Delete removes a vector from the store
func (ms *MemoryStore) Delete(id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, exists := ms.vectors[id]; !exists {
		return fmt.Errorf("vector with ID %s not found", id)
	}

	delete(ms.vectors, id)
	return nil
}

// Close shuts down the vector store and saves if persistence is enabled.
// Safe to call more than once.
func (ms *MemoryStore) Close() error {
	// Signal the auto-save routine before taking the lock. A save in
	// flight holds the read lock, so signalling under the write lock
	// would block both sides.
	if ms.ticker != nil {
		ms.ticker.Stop()
	}
	ms.closeOnce.Do(func() { close(ms.done) })

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.options.PersistenceFile != "" {
		return ms.saveToFileUnsafe(ms.options.PersistenceFile)
	}

	return nil
}

// SaveToFile saves the vector store to a JSON file
func (ms *MemoryStore) SaveToFile(filename string) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.saveToFileUnsafe(filename)
}

// saveToFileUnsafe saves without acquiring locks (internal use)
func (ms *MemoryStore) saveToFileUnsafe(filename string) error {
	file, err := os.Create(filename) // #nosec G304 -- filename is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(ms.vectors); err != nil {
		return fmt.Errorf("failed to encode vectors: %w", err)
	}

	return nil
}

// LoadFromFile loads the vector store from a JSON file
func (ms *MemoryStore) LoadFromFile(filename string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	file, err := os.Open(filename) // #nosec G304 -- filename is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	defer func() { _ = file.Close() }()

	decoder := json.NewDecoder(file)
	vectors := make(map[string]VectorEntry)

	if err := decoder.Decode(&vectors); err != nil {
		return fmt.Errorf("failed to decode vectors: %w", err)
	}

	ms.vectors = vectors
	return nil
}

// autoSaveRoutine runs the automatic save routine
func (ms *MemoryStore) autoSaveRoutine() {
	for {
		select {
		case <-ms.ticker.C:
			if ms.options.PersistenceFile != "" {
				if err := ms.SaveToFile(ms.options.PersistenceFile); err != nil {
					continue
				}
			}
		case <-ms.done:
			return
		}
	}
}

// Size returns the number of vectors in the store
func (ms *MemoryStore) Size() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.vectors)
}

// Get retrieves a vector entry by ID
func (ms *MemoryStore) Get(id string) (VectorEntry, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	entry, exists := ms.vectors[id]
	return entry, exists
}

// List returns all vector IDs in the store
func (ms *MemoryStore) List() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ids := make([]string, 0, len(ms.vectors))
	for id := range ms.vectors {
		ids = append(ids, id)
	}

	sort.Strings(ids)
	return ids
}

// Clear removes all vectors from the store
func (ms *MemoryStore) Clear() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.vectors = make(map[string]VectorEntry)
}

// ExportToWriter exports vectors to a writer in JSON format
func (ms *MemoryStore) ExportToWriter(writer io.Writer) error {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(ms.vectors)
}

// ImportFromReader imports vectors from a reader in JSON format
func (ms *MemoryStore) ImportFromReader(reader io.Reader) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	decoder := json.NewDecoder(reader)
	vectors := make(map[string]VectorEntry)

	if err := decoder.Decode(&vectors); err != nil {
		return fmt.Errorf("failed to decode vectors: %w", err)
	}

	// Merge with existing vectors
	for id, entry := range vectors {
		ms.vectors[id] = entry
	}

	return nil
}
