package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testImage(id, category string, seed bool) *ImageRecord {
	return &ImageRecord{
		ID:       id,
		Path:     "/photos/" + category + "/" + id + ".jpg",
		Title:    id,
		Category: category,
		Width:    640,
		Height:   480,
		Size:     12345,
		Format:   "jpeg",
		Seed:     seed,
	}
}

func TestUpsertAndGetImage(t *testing.T) {
	store := openTestStore(t)

	img := testImage("abc123", "cats", true)
	if err := store.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}

	got, err := store.GetImage("abc123")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetImage() returned nil for stored image")
	}
	if got.Category != "cats" || !got.Seed || got.Width != 640 {
		t.Errorf("stored record mismatch: %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated")
	}

	byPath, err := store.GetImageByPath(img.Path)
	if err != nil {
		t.Fatalf("GetImageByPath() error = %v", err)
	}
	if byPath == nil || byPath.ID != "abc123" {
		t.Errorf("GetImageByPath() = %+v, want abc123", byPath)
	}
}

func TestUpsertImageRequiresID(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertImage(&ImageRecord{Path: "/x.jpg"}); err == nil {
		t.Error("UpsertImage() should reject records without an ID")
	}
}

func TestUpsertImageUpdatesExisting(t *testing.T) {
	store := openTestStore(t)

	img := testImage("dup", "cats", false)
	if err := store.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}

	img.Category = "dogs"
	img.Path = "/photos/dogs/dup.jpg"
	if err := store.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage() update error = %v", err)
	}

	got, err := store.GetImage("dup")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if got.Category != "dogs" {
		t.Errorf("category = %s, want dogs after update", got.Category)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalImages != 1 {
		t.Errorf("total images = %d, want 1 after upsert of same ID", stats.TotalImages)
	}
}

func TestGetImageMissing(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetImage("missing")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetImage() = %+v, want nil for missing image", got)
	}
}

func TestListImages(t *testing.T) {
	store := openTestStore(t)

	for _, img := range []*ImageRecord{
		testImage("a", "cats", true),
		testImage("b", "dogs", true),
		testImage("c", "dogs", false),
	} {
		if err := store.UpsertImage(img); err != nil {
			t.Fatalf("UpsertImage() error = %v", err)
		}
	}

	all, err := store.ListImages(ListOptions{})
	if err != nil {
		t.Fatalf("ListImages() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("ListImages() = %d images, want 3", len(all))
	}

	seed, err := store.ListImages(ListOptions{SeedOnly: true})
	if err != nil {
		t.Fatalf("ListImages(seed) error = %v", err)
	}
	if len(seed) != 2 {
		t.Errorf("seed images = %d, want 2", len(seed))
	}

	dogs, err := store.ListImages(ListOptions{Category: "dogs"})
	if err != nil {
		t.Fatalf("ListImages(category) error = %v", err)
	}
	if len(dogs) != 2 {
		t.Errorf("dog images = %d, want 2", len(dogs))
	}

	limited, err := store.ListImages(ListOptions{Limit: 1})
	if err != nil {
		t.Fatalf("ListImages(limit) error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited list = %d images, want 1", len(limited))
	}
}

func TestFeatureRoundtrip(t *testing.T) {
	store := openTestStore(t)

	img := testImage("feat1", "cats", true)
	if err := store.UpsertImage(img); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}

	vector := []float32{0.1, -0.5, 0.25, 1.0}
	err := store.StoreFeatures(&FeatureRecord{
		ImageID:   "feat1",
		Model:     "rgb512",
		Dimension: len(vector),
		Vector:    vector,
	})
	if err != nil {
		t.Fatalf("StoreFeatures() error = %v", err)
	}

	got, err := store.GetFeatures("feat1", "rgb512")
	if err != nil {
		t.Fatalf("GetFeatures() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetFeatures() returned nil")
	}
	if got.Dimension != 4 || len(got.Vector) != 4 {
		t.Fatalf("dimension = %d, vector length = %d, want 4", got.Dimension, len(got.Vector))
	}
	for i := range vector {
		if got.Vector[i] != vector[i] {
			t.Errorf("vector[%d] = %f, want %f", i, got.Vector[i], vector[i])
		}
	}

	// Storing features marks the image as extracted
	rec, err := store.GetImage("feat1")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if !rec.Extracted {
		t.Error("image should be marked extracted after StoreFeatures")
	}
}

func TestGetFeaturesMissing(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetFeatures("nope", "rgb512")
	if err != nil {
		t.Fatalf("GetFeatures() error = %v", err)
	}
	if got != nil {
		t.Error("GetFeatures() should return nil for missing features")
	}
}

func TestLoadFeaturesByModel(t *testing.T) {
	store := openTestStore(t)

	for _, id := range []string{"x", "y"} {
		if err := store.UpsertImage(testImage(id, "cats", true)); err != nil {
			t.Fatalf("UpsertImage() error = %v", err)
		}
		err := store.StoreFeatures(&FeatureRecord{
			ImageID: id, Model: "rgb512", Dimension: 2, Vector: []float32{1, 0},
		})
		if err != nil {
			t.Fatalf("StoreFeatures() error = %v", err)
		}
	}
	err := store.StoreFeatures(&FeatureRecord{
		ImageID: "x", Model: "rgb128", Dimension: 2, Vector: []float32{0, 1},
	})
	if err != nil {
		t.Fatalf("StoreFeatures() error = %v", err)
	}

	records, err := store.LoadFeatures("rgb512")
	if err != nil {
		t.Fatalf("LoadFeatures() error = %v", err)
	}
	if len(records) != 2 {
		t.Errorf("LoadFeatures(rgb512) = %d records, want 2", len(records))
	}
}

func TestDeleteImageCascades(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertImage(testImage("gone", "cats", true)); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}
	err := store.StoreFeatures(&FeatureRecord{
		ImageID: "gone", Model: "rgb512", Dimension: 2, Vector: []float32{1, 0},
	})
	if err != nil {
		t.Fatalf("StoreFeatures() error = %v", err)
	}

	if err := store.DeleteImage("gone"); err != nil {
		t.Fatalf("DeleteImage() error = %v", err)
	}

	img, err := store.GetImage("gone")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if img != nil {
		t.Error("image should be gone after delete")
	}

	feat, err := store.GetFeatures("gone", "rgb512")
	if err != nil {
		t.Fatalf("GetFeatures() error = %v", err)
	}
	if feat != nil {
		t.Error("features should be gone after delete")
	}
}

func TestClearSeedImages(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertImage(testImage("s1", "cats", true)); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}
	if err := store.UpsertImage(testImage("s2", "cats", true)); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}
	if err := store.UpsertImage(testImage("keep", "uploads", false)); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}

	removed, err := store.ClearSeedImages()
	if err != nil {
		t.Fatalf("ClearSeedImages() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalImages != 1 || stats.SeedImages != 0 {
		t.Errorf("stats after clear = %+v", stats)
	}
}

func TestSetProcessError(t *testing.T) {
	store := openTestStore(t)

	if err := store.UpsertImage(testImage("bad", "cats", true)); err != nil {
		t.Fatalf("UpsertImage() error = %v", err)
	}
	if err := store.SetProcessError("bad", "decode failed"); err != nil {
		t.Fatalf("SetProcessError() error = %v", err)
	}

	img, err := store.GetImage("bad")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if img.ProcessError != "decode failed" {
		t.Errorf("process error = %q, want %q", img.ProcessError, "decode failed")
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.FailedImages != 1 {
		t.Errorf("failed images = %d, want 1", stats.FailedImages)
	}
}

func TestLogSearch(t *testing.T) {
	store := openTestStore(t)

	err := store.LogSearch(&QueryLog{
		QueryPath:  "/tmp/query.jpg",
		QueryHash:  "deadbeef",
		Model:      "rgb512",
		Threshold:  0.7,
		MaxResults: 20,
		Duration:   42 * time.Millisecond,
		Results: []QueryResult{
			{ImageID: "a", Rank: 1, Score: 0.95},
			{ImageID: "b", Rank: 2, Score: 0.81},
		},
	})
	if err != nil {
		t.Fatalf("LogSearch() error = %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalQueries != 1 {
		t.Errorf("total queries = %d, want 1", stats.TotalQueries)
	}
}

func TestEncodeDecodeVector(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, 3.125}

	decoded, err := DecodeVector(EncodeVector(vector))
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if len(decoded) != len(vector) {
		t.Fatalf("decoded length = %d, want %d", len(decoded), len(vector))
	}
	for i := range vector {
		if decoded[i] != vector[i] {
			t.Errorf("decoded[%d] = %f, want %f", i, decoded[i], vector[i])
		}
	}

	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("DecodeVector() should reject blobs that are not a multiple of 4 bytes")
	}
}
