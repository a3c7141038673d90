package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crawshaw.io/sqlite"
)

// Store persists the image catalog in a SQLite database. A single
// connection guarded by a mutex is enough for a CLI workload.
type Store struct {
	mu     sync.Mutex
	conn   *sqlite.Conn
	dbPath string
}

// Open opens or creates the catalog database at the given path
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	conn, err := sqlite.OpenConn(dbPath, sqlite.SQLITE_OPEN_CREATE|sqlite.SQLITE_OPEN_READWRITE)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	store := &Store{conn: conn, dbPath: dbPath}
	if err := store.createSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create catalog schema: %w", err)
	}

	return store, nil
}

// Path returns the database path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			size INTEGER NOT NULL,
			format TEXT NOT NULL,
			seed INTEGER NOT NULL DEFAULT 0,
			extracted INTEGER NOT NULL DEFAULT 0,
			process_error TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_path ON images(path)`,
		`CREATE TABLE IF NOT EXISTS features (
			image_id TEXT NOT NULL,
			model TEXT NOT NULL,
			dimension INTEGER NOT NULL,
			vector BLOB NOT NULL,
			extracted_at INTEGER NOT NULL,
			PRIMARY KEY (image_id, model)
		)`,
		`CREATE TABLE IF NOT EXISTS search_queries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query_path TEXT NOT NULL,
			query_hash TEXT NOT NULL,
			model TEXT NOT NULL,
			threshold REAL NOT NULL,
			max_results INTEGER NOT NULL,
			result_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS search_results (
			query_id INTEGER NOT NULL,
			image_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			score REAL NOT NULL
		)`,
	}

	for _, sql := range statements {
		if err := s.exec(sql); err != nil {
			return err
		}
	}
	return nil
}

// exec runs a statement that returns no rows. Caller must hold no lock;
// exec is only used during schema creation before the store is shared.
func (s *Store) exec(sql string) error {
	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// UpsertImage inserts or updates an image record keyed by content hash.
// CreatedAt is preserved on update; UpdatedAt is always refreshed.
func (s *Store) UpsertImage(img *ImageRecord) error {
	if img.ID == "" {
		return fmt.Errorf("image record requires an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	createdAt := img.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	stmt, err := s.conn.Prepare(`
		INSERT INTO images (id, path, title, category, width, height, size, format, seed, extracted, process_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			title = excluded.title,
			category = excluded.category,
			width = excluded.width,
			height = excluded.height,
			size = excluded.size,
			format = excluded.format,
			seed = excluded.seed,
			process_error = excluded.process_error,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindText(1, img.ID)
	stmt.BindText(2, img.Path)
	stmt.BindText(3, img.Title)
	stmt.BindText(4, img.Category)
	stmt.BindInt64(5, int64(img.Width))
	stmt.BindInt64(6, int64(img.Height))
	stmt.BindInt64(7, img.Size)
	stmt.BindText(8, img.Format)
	stmt.BindInt64(9, boolToInt(img.Seed))
	stmt.BindInt64(10, boolToInt(img.Extracted))
	stmt.BindText(11, img.ProcessError)
	stmt.BindInt64(12, createdAt.Unix())
	stmt.BindInt64(13, now.Unix())

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to upsert image %s: %w", img.ID, err)
	}
	return nil
}

// GetImage looks up an image by content hash
func (s *Store) GetImage(id string) (*ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getImageBy("id = ?", id)
}

// GetImageByPath looks up an image by file path
func (s *Store) GetImageByPath(path string) (*ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getImageBy("path = ?", path)
}

func (s *Store) getImageBy(where, value string) (*ImageRecord, error) {
	stmt, err := s.conn.Prepare(
		`SELECT id, path, title, category, width, height, size, format, seed, extracted, process_error, created_at, updated_at
		 FROM images WHERE ` + where)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare select: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindText(1, value)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, fmt.Errorf("failed to query image: %w", err)
	}
	if !hasRow {
		return nil, nil
	}
	return scanImage(stmt), nil
}

// ListImages returns images matching the filter options, newest first
func (s *Store) ListImages(opts ListOptions) ([]*ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sql := `SELECT id, path, title, category, width, height, size, format, seed, extracted, process_error, created_at, updated_at
		FROM images WHERE 1 = 1`
	if opts.SeedOnly {
		sql += ` AND seed = 1`
	}
	if opts.PendingOnly {
		sql += ` AND extracted = 0`
	}
	var binds []string
	if opts.Category != "" {
		sql += ` AND category = ?`
		binds = append(binds, opts.Category)
	}
	sql += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT %d`, opts.Limit)
	}

	stmt, err := s.conn.Prepare(sql)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare list: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	for i, bind := range binds {
		stmt.BindText(i+1, bind)
	}

	var images []*ImageRecord
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to list images: %w", err)
		}
		if !hasRow {
			break
		}
		images = append(images, scanImage(stmt))
	}
	return images, nil
}

// DeleteImage removes an image and all of its stored features
func (s *Store) DeleteImage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sql := range []string{
		`DELETE FROM features WHERE image_id = ?`,
		`DELETE FROM images WHERE id = ?`,
	} {
		stmt, err := s.conn.Prepare(sql)
		if err != nil {
			return fmt.Errorf("failed to prepare delete: %w", err)
		}
		stmt.BindText(1, id)
		if _, err := stmt.Step(); err != nil {
			_ = stmt.Reset()
			return fmt.Errorf("failed to delete image %s: %w", id, err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// ClearSeedImages removes all seed images and their features, returning
// the number of images removed.
func (s *Store) ClearSeedImages() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`DELETE FROM features WHERE image_id IN (SELECT id FROM images WHERE seed = 1)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare feature clear: %w", err)
	}
	if _, err := stmt.Step(); err != nil {
		_ = stmt.Reset()
		return 0, fmt.Errorf("failed to clear seed features: %w", err)
	}
	_ = stmt.Reset()

	stmt, err = s.conn.Prepare(`DELETE FROM images WHERE seed = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare image clear: %w", err)
	}
	if _, err := stmt.Step(); err != nil {
		_ = stmt.Reset()
		return 0, fmt.Errorf("failed to clear seed images: %w", err)
	}
	_ = stmt.Reset()

	return s.conn.Changes(), nil
}

// StoreFeatures saves an embedding and marks the image as extracted
func (s *Store) StoreFeatures(rec *FeatureRecord) error {
	if rec.ImageID == "" || rec.Model == "" {
		return fmt.Errorf("feature record requires image ID and model")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	extractedAt := rec.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now()
	}

	stmt, err := s.conn.Prepare(`
		INSERT OR REPLACE INTO features (image_id, model, dimension, vector, extracted_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare feature insert: %w", err)
	}

	stmt.BindText(1, rec.ImageID)
	stmt.BindText(2, rec.Model)
	stmt.BindInt64(3, int64(rec.Dimension))
	stmt.BindBytes(4, EncodeVector(rec.Vector))
	stmt.BindInt64(5, extractedAt.Unix())

	if _, err := stmt.Step(); err != nil {
		_ = stmt.Reset()
		return fmt.Errorf("failed to store features for %s: %w", rec.ImageID, err)
	}
	_ = stmt.Reset()

	stmt, err = s.conn.Prepare(`UPDATE images SET extracted = 1, process_error = '', updated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare extracted update: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindInt64(1, time.Now().Unix())
	stmt.BindText(2, rec.ImageID)
	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to mark image %s extracted: %w", rec.ImageID, err)
	}
	return nil
}

// GetFeatures loads one stored embedding, or nil when absent
func (s *Store) GetFeatures(imageID, model string) (*FeatureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT dimension, vector, extracted_at FROM features WHERE image_id = ? AND model = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare feature select: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindText(1, imageID)
	stmt.BindText(2, model)

	hasRow, err := stmt.Step()
	if err != nil {
		return nil, fmt.Errorf("failed to query features: %w", err)
	}
	if !hasRow {
		return nil, nil
	}

	blob := make([]byte, stmt.ColumnLen(1))
	stmt.ColumnBytes(1, blob)
	vector, err := DecodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt vector for image %s: %w", imageID, err)
	}

	return &FeatureRecord{
		ImageID:     imageID,
		Model:       model,
		Dimension:   stmt.ColumnInt(0),
		Vector:      vector,
		ExtractedAt: time.Unix(stmt.ColumnInt64(2), 0),
	}, nil
}

// LoadFeatures returns all stored embeddings for a model, used to warm
// the in-memory index before searching.
func (s *Store) LoadFeatures(model string) ([]*FeatureRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`SELECT image_id, dimension, vector, extracted_at FROM features WHERE model = ?`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare feature scan: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindText(1, model)

	var records []*FeatureRecord
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to scan features: %w", err)
		}
		if !hasRow {
			break
		}

		imageID := stmt.ColumnText(0)
		blob := make([]byte, stmt.ColumnLen(2))
		stmt.ColumnBytes(2, blob)
		vector, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt vector for image %s: %w", imageID, err)
		}

		records = append(records, &FeatureRecord{
			ImageID:     imageID,
			Model:       model,
			Dimension:   stmt.ColumnInt(1),
			Vector:      vector,
			ExtractedAt: time.Unix(stmt.ColumnInt64(3), 0),
		})
	}
	return records, nil
}

// SetProcessError records an extraction failure on an image
func (s *Store) SetProcessError(id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`UPDATE images SET process_error = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare error update: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	stmt.BindText(1, message)
	stmt.BindInt64(2, time.Now().Unix())
	stmt.BindText(3, id)

	if _, err := stmt.Step(); err != nil {
		return fmt.Errorf("failed to record error for image %s: %w", id, err)
	}
	return nil
}

// LogSearch records a search query and its ranked results
func (s *Store) LogSearch(log *QueryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.conn.Prepare(`
		INSERT INTO search_queries (query_path, query_hash, model, threshold, max_results, result_count, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare query log: %w", err)
	}

	stmt.BindText(1, log.QueryPath)
	stmt.BindText(2, log.QueryHash)
	stmt.BindText(3, log.Model)
	stmt.BindFloat(4, log.Threshold)
	stmt.BindInt64(5, int64(log.MaxResults))
	stmt.BindInt64(6, int64(len(log.Results)))
	stmt.BindInt64(7, log.Duration.Milliseconds())
	stmt.BindInt64(8, time.Now().Unix())

	if _, err := stmt.Step(); err != nil {
		_ = stmt.Reset()
		return fmt.Errorf("failed to log search query: %w", err)
	}
	_ = stmt.Reset()

	queryID := s.conn.LastInsertRowID()

	for _, result := range log.Results {
		stmt, err := s.conn.Prepare(`INSERT INTO search_results (query_id, image_id, rank, score) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare result log: %w", err)
		}
		stmt.BindInt64(1, queryID)
		stmt.BindText(2, result.ImageID)
		stmt.BindInt64(3, int64(result.Rank))
		stmt.BindFloat(4, result.Score)
		if _, err := stmt.Step(); err != nil {
			_ = stmt.Reset()
			return fmt.Errorf("failed to log search result: %w", err)
		}
		_ = stmt.Reset()
	}
	return nil
}

// Stats aggregates catalog counters
func (s *Store) Stats() (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &Stats{Categories: make(map[string]int)}

	counters := []struct {
		sql  string
		dest *int
	}{
		{`SELECT COUNT(*) FROM images`, &stats.TotalImages},
		{`SELECT COUNT(*) FROM images WHERE seed = 1`, &stats.SeedImages},
		{`SELECT COUNT(*) FROM images WHERE extracted = 1`, &stats.ExtractedImages},
		{`SELECT COUNT(*) FROM images WHERE extracted = 0 AND process_error = ''`, &stats.PendingImages},
		{`SELECT COUNT(*) FROM images WHERE process_error != ''`, &stats.FailedImages},
		{`SELECT COUNT(*) FROM search_queries`, &stats.TotalQueries},
	}

	for _, counter := range counters {
		stmt, err := s.conn.Prepare(counter.sql)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare stats query: %w", err)
		}
		hasRow, err := stmt.Step()
		if err != nil {
			_ = stmt.Reset()
			return nil, fmt.Errorf("failed to count: %w", err)
		}
		if hasRow {
			*counter.dest = stmt.ColumnInt(0)
		}
		_ = stmt.Reset()
	}

	stmt, err := s.conn.Prepare(`SELECT category, COUNT(*) FROM images GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare category query: %w", err)
	}
	defer func() { _ = stmt.Reset() }()

	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("failed to count categories: %w", err)
		}
		if !hasRow {
			break
		}
		stats.Categories[stmt.ColumnText(0)] = stmt.ColumnInt(1)
	}

	return stats, nil
}

func scanImage(stmt *sqlite.Stmt) *ImageRecord {
	return &ImageRecord{
		ID:           stmt.ColumnText(0),
		Path:         stmt.ColumnText(1),
		Title:        stmt.ColumnText(2),
		Category:     stmt.ColumnText(3),
		Width:        stmt.ColumnInt(4),
		Height:       stmt.ColumnInt(5),
		Size:         stmt.ColumnInt64(6),
		Format:       stmt.ColumnText(7),
		Seed:         stmt.ColumnInt(8) != 0,
		Extracted:    stmt.ColumnInt(9) != 0,
		ProcessError: stmt.ColumnText(10),
		CreatedAt:    time.Unix(stmt.ColumnInt64(11), 0),
		UpdatedAt:    time.Unix(stmt.ColumnInt64(12), 0),
	}
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
