package config

// SampleConfig returns a fully commented sample configuration file
func SampleConfig() string {
	return `# imgseek configuration file
# Search order: ./.imgseek.yaml, ~/.config/imgseek/config.yaml, /etc/imgseek/config.yaml
# Environment variables with the IMGSEEK_ prefix override file settings.

version: "1.0"

# Feature extraction settings
extractor:
  # Embedding model: rgb512 (8x8 grid, 512 dims) or rgb128 (4x4 grid, 128 dims)
  model: rgb512
  # Square edge length images are resized to before extraction
  input_size: 224
  # Concurrent workers for batch extraction
  workers: 4
  # Per-batch extraction timeout
  timeout: 2m

# Similarity search settings
search:
  # Minimum cosine similarity for a match (0-1)
  threshold: 0.7
  # Maximum number of results returned
  max_results: 20
  # Record every query and its ranked results in the catalog
  log_queries: true

# Storage locations
storage:
  data_dir: ~/.cache/imgseek
  catalog_path: ~/.cache/imgseek/catalog.db
  # Optional JSON snapshot of the in-memory vector index
  vector_cache_path: ""
  auto_save_interval: 5m

# Seed image ingestion
ingest:
  seed_dirs:
    - ./data/seed_images
  # Files larger than this are rejected (bytes)
  max_file_size: 2097152
  min_width: 50
  min_height: 50
  excludes:
    - node_modules
    - .git
    - vendor
    - thumbnails
  extensions:
    - .jpg
    - .jpeg
    - .png
  watch_debounce: 500ms

# Output settings
output:
  default_format: text
  color_mode: auto
  verbose: false
  show_progress: true
`
}

// MinimalSampleConfig returns a compact configuration with essential settings
func MinimalSampleConfig() string {
	return `# imgseek configuration (minimal)
version: "1.0"

extractor:
  model: rgb512

search:
  threshold: 0.7
  max_results: 20

ingest:
  seed_dirs:
    - ./data/seed_images
`
}
