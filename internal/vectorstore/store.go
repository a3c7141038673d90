package vectorstore

// VectorStore defines the interface for embedding storage operations
type VectorStore interface {
	Store(entry VectorEntry) error
	Search(vector []float32, topK int) ([]SearchResult, error)
	Delete(id string) error
	Close() error
}

// SearchResult represents a single hit from a similarity search
type SearchResult struct {
	ID       string
	Score    float32
	Path     string
	Category string
	Vector   []float32
}
