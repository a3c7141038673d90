package vectorstore

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestCosineSimilarity tests the cosine similarity function
func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 1.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1, 0},
			b:        []float32{0, 1},
			expected: 0.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1, 0},
			b:        []float32{-1, 0},
			expected: -1.0,
		},
		{
			name:     "different length vectors",
			a:        []float32{1, 2},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "zero vector",
			a:        []float32{0, 0, 0},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(result-tt.expected)) > 1e-6 {
				t.Errorf("CosineSimilarity() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestEuclideanDistance tests the Euclidean distance function
func TestEuclideanDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1, 2, 3},
			b:        []float32{1, 2, 3},
			expected: 0.0,
		},
		{
			name:     "simple distance",
			a:        []float32{0, 0},
			b:        []float32{3, 4},
			expected: 5.0,
		},
		{
			name:     "different length vectors",
			a:        []float32{1, 2},
			b:        []float32{1, 2, 3},
			expected: float32(math.Inf(1)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EuclideanDistance(tt.a, tt.b)
			if math.Abs(float64(result-tt.expected)) > 1e-6 {
				t.Errorf("EuclideanDistance() = %v, want %v", result, tt.expected)
			}
		})
	}
}

// TestNormalizeVector tests vector normalization
func TestNormalizeVector(t *testing.T) {
	tests := []struct {
		name     string
		input    []float32
		expected []float32
	}{
		{
			name:     "unit vector",
			input:    []float32{1, 0, 0},
			expected: []float32{1, 0, 0},
		},
		{
			name:     "simple vector",
			input:    []float32{3, 4},
			expected: []float32{0.6, 0.8},
		},
		{
			name:     "zero vector",
			input:    []float32{0, 0, 0},
			expected: []float32{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeVector(tt.input)
			for i, val := range result {
				if math.Abs(float64(val-tt.expected[i])) > 1e-6 {
					t.Errorf("NormalizeVector()[%d] = %v, want %v", i, val, tt.expected[i])
				}
			}
		})
	}
}

// TestMemoryStoreBasicOperations tests store, get, and delete
func TestMemoryStoreBasicOperations(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	entry := VectorEntry{
		ID:       "img1",
		Path:     "/data/seed/cats/cat1.jpg",
		Category: "cats",
		Seed:     true,
		Vector:   []float32{1, 0, 0},
	}

	if err := store.Store(entry); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if store.Size() != 1 {
		t.Errorf("Size() = %d, want 1", store.Size())
	}

	got, exists := store.Get("img1")
	if !exists {
		t.Fatal("Get() entry not found")
	}
	if got.Category != "cats" {
		t.Errorf("Get() category = %s, want cats", got.Category)
	}
	if got.Timestamp.IsZero() {
		t.Error("Store() should set timestamp when zero")
	}

	if err := store.Delete("img1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete("img1"); err == nil {
		t.Error("Delete() should fail for missing entry")
	}
}

// TestMemoryStoreRejectsEmptyID tests the ID requirement
func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	if err := store.Store(VectorEntry{Vector: []float32{1}}); err == nil {
		t.Error("Store() should reject entries without an ID")
	}
}

// TestMemoryStoreSearch tests top-K search ordering
func TestMemoryStoreSearch(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	entries := []VectorEntry{
		{ID: "exact", Vector: []float32{1, 0, 0}},
		{ID: "close", Vector: []float32{0.9, 0.1, 0}},
		{ID: "far", Vector: []float32{0, 1, 0}},
	}
	for _, e := range entries {
		if err := store.Store(e); err != nil {
			t.Fatalf("Store() error = %v", err)
		}
	}

	results, err := store.Search([]float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].ID != "exact" {
		t.Errorf("Search() top result = %s, want exact", results[0].ID)
	}
	if results[1].ID != "close" {
		t.Errorf("Search() second result = %s, want close", results[1].ID)
	}
	if results[0].Score < results[1].Score {
		t.Error("Search() results not sorted by descending score")
	}
}

// TestMemoryStoreSearchSkipsMismatchedDimensions ensures entries embedded
// with a different model are not compared against the query
func TestMemoryStoreSearchSkipsMismatchedDimensions(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	_ = store.Store(VectorEntry{ID: "dim3", Vector: []float32{1, 0, 0}})
	_ = store.Store(VectorEntry{ID: "dim2", Vector: []float32{1, 0}})

	results, err := store.Search([]float32{1, 0, 0}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "dim3" {
		t.Errorf("Search() = %v, want only dim3", results)
	}
}

// TestMemoryStoreSearchWithFilter tests filtered search
func TestMemoryStoreSearchWithFilter(t *testing.T) {
	store := NewMemoryStore()
	defer func() { _ = store.Close() }()

	_ = store.Store(VectorEntry{ID: "seed", Seed: true, Vector: []float32{1, 0}})
	_ = store.Store(VectorEntry{ID: "upload", Seed: false, Vector: []float32{1, 0}})

	results, err := store.SearchWithFilter([]float32{1, 0}, 10, func(e VectorEntry) bool {
		return e.Seed
	})
	if err != nil {
		t.Fatalf("SearchWithFilter() error = %v", err)
	}
	if len(results) != 1 || results[0].ID != "seed" {
		t.Errorf("SearchWithFilter() = %v, want only seed", results)
	}
}

// TestMemoryStoreNormalization tests automatic normalization
func TestMemoryStoreNormalization(t *testing.T) {
	store := NewMemoryStore(WithNormalization())
	defer func() { _ = store.Close() }()

	_ = store.Store(VectorEntry{ID: "a", Vector: []float32{3, 4}})

	entry, _ := store.Get("a")
	mag := Magnitude(entry.Vector)
	if math.Abs(float64(mag-1.0)) > 1e-6 {
		t.Errorf("stored vector magnitude = %v, want 1.0", mag)
	}
}

// TestMemoryStoreMaxVectors tests the capacity limit
func TestMemoryStoreMaxVectors(t *testing.T) {
	store := NewMemoryStore(WithMaxVectors(1))
	defer func() { _ = store.Close() }()

	if err := store.Store(VectorEntry{ID: "a", Vector: []float32{1}}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := store.Store(VectorEntry{ID: "b", Vector: []float32{1}}); err == nil {
		t.Error("Store() should fail when store is full")
	}
	// Updating an existing entry is still allowed at capacity.
	if err := store.Store(VectorEntry{ID: "a", Vector: []float32{2}}); err != nil {
		t.Errorf("Store() update at capacity error = %v", err)
	}
}

// TestMemoryStorePersistence tests save and load roundtrip
func TestMemoryStorePersistence(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "vectors.json")

	store := NewMemoryStore()
	_ = store.Store(VectorEntry{ID: "a", Path: "/img/a.png", Vector: []float32{1, 2, 3}})
	_ = store.Store(VectorEntry{ID: "b", Path: "/img/b.png", Vector: []float32{4, 5, 6}})

	if err := store.SaveToFile(filename); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	_ = store.Close()

	if _, err := os.Stat(filename); err != nil {
		t.Fatalf("persistence file missing: %v", err)
	}

	restored := NewMemoryStore()
	defer func() { _ = restored.Close() }()
	if err := restored.LoadFromFile(filename); err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if restored.Size() != 2 {
		t.Errorf("restored Size() = %d, want 2", restored.Size())
	}
	entry, exists := restored.Get("a")
	if !exists || entry.Path != "/img/a.png" {
		t.Errorf("restored entry a = %+v", entry)
	}
}

// TestMemoryStoreCloseWithPersistence tests save-on-close
func TestMemoryStoreCloseWithPersistence(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "vectors.json")

	store := NewMemoryStore(WithPersistence(filename))
	_ = store.Store(VectorEntry{ID: "a", Vector: []float32{1}})

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(filename); err != nil {
		t.Errorf("Close() did not write persistence file: %v", err)
	}
}

// TestMemoryStoreCloseDuringAutoSave ensures Close returns even when the
// auto-save routine is mid-save at shutdown
func TestMemoryStoreCloseDuringAutoSave(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vectors.json")

	store := NewMemoryStore(WithPersistence(filename), WithAutoSave(time.Microsecond))
	_ = store.Store(VectorEntry{ID: "a", Vector: []float32{1, 0}})

	// Give the ticker time to fire so a save is in progress or pending.
	time.Sleep(5 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- store.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return while auto-save was active")
	}

	if _, err := os.Stat(filename); err != nil {
		t.Errorf("Close() did not write persistence file: %v", err)
	}

	// Closing an already-closed store is a no-op, not a panic.
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// TestMemoryStoreAutoSaveWritesSnapshot ensures the auto-save routine
// persists the snapshot without an explicit save call
func TestMemoryStoreAutoSaveWritesSnapshot(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "vectors.json")

	store := NewMemoryStore(WithPersistence(filename), WithAutoSave(time.Millisecond))
	defer func() { _ = store.Close() }()

	_ = store.Store(VectorEntry{ID: "a", Vector: []float32{1, 0}})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(filename); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("auto-save never wrote the snapshot file")
}
