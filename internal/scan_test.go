package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func testScanConfig() *Config {
	return &Config{
		ImageExt: []string{".jpg", ".jpeg", ".png"},
		VideoExt: []string{".mp4", ".mov"},
	}
}

func TestScanMedia_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, "sub"), 0755)

	os.WriteFile(filepath.Join(dir, "zebra.jpg"), []byte("z"), 0644)
	os.WriteFile(filepath.Join(dir, "apple.PNG"), []byte("a"), 0644)
	os.WriteFile(filepath.Join(dir, "clip.mp4"), []byte("c"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("n"), 0644)
	os.WriteFile(filepath.Join(dir, "sub", "nested.jpeg"), []byte("s"), 0644)

	entries, err := ScanMedia(dir, testScanConfig())
	if err != nil {
		t.Fatalf("ScanMedia failed: %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("Expected 4 media files, got %d", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Path > entries[i].Path {
			t.Errorf("Entries not sorted: %s after %s", entries[i-1].Path, entries[i].Path)
		}
	}

	byName := make(map[string]ScanEntry)
	for _, e := range entries {
		byName[filepath.Base(e.Path)] = e
	}
	if _, ok := byName["notes.txt"]; ok {
		t.Error("Non-media file included")
	}
	if !byName["apple.PNG"].IsImage {
		t.Error("Extension match should be case insensitive")
	}
	if byName["clip.mp4"].IsImage {
		t.Error("Video marked as image")
	}
	if _, ok := byName["nested.jpeg"]; !ok {
		t.Error("Nested file missing")
	}
}

func TestScanMedia_SkipsHiddenDirectories(t *testing.T) {
	dir := t.TempDir()
	os.MkdirAll(filepath.Join(dir, ".thumbnails"), 0755)
	os.WriteFile(filepath.Join(dir, ".thumbnails", "thumb.jpg"), []byte("t"), 0644)
	os.WriteFile(filepath.Join(dir, "real.jpg"), []byte("r"), 0644)

	entries, err := ScanMedia(dir, testScanConfig())
	if err != nil {
		t.Fatalf("ScanMedia failed: %v", err)
	}
	if len(entries) != 1 || filepath.Base(entries[0].Path) != "real.jpg" {
		t.Errorf("Expected only real.jpg, got %v", entries)
	}
}

func TestScanMedia_MissingDir(t *testing.T) {
	if _, err := ScanMedia("/nonexistent/folder", testScanConfig()); err == nil {
		t.Error("Expected an error for a missing directory")
	}
}
