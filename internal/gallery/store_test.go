package gallery

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStorePutListRoundTrip(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), "gallery.jsonl")}

	if err := store.Put(Image{ID: "a", Src: "https://img/a-v1.png", Prompt: "poster", Kind: "image"}); err != nil {
		t.Fatalf("put a: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if err := store.Put(Image{ID: "b", Src: "https://img/b-v1.png", Kind: "logo"}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	// 编辑：同 id 换 src。
	if err := store.Put(Image{ID: "a", Src: "https://img/a-v2.png", Prompt: "poster", Kind: "image"}); err != nil {
		t.Fatalf("edit a: %v", err)
	}

	images, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("len %d, want 2", len(images))
	}
	if images[0].ID != "a" || images[0].Src != "https://img/a-v2.png" {
		t.Fatalf("newest-first with latest src, got %+v", images[0])
	}
	if images[0].Created.After(images[0].Updated) {
		t.Fatal("created timestamp not preserved across edit")
	}
}

func TestStoreListMissingFile(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), "missing.jsonl")}
	images, err := store.List()
	if err != nil || images != nil {
		t.Fatalf("want empty list without error, got %v %v", images, err)
	}
}

func TestStoreRejectsEmptyID(t *testing.T) {
	store := &Store{Path: filepath.Join(t.TempDir(), "gallery.jsonl")}
	if err := store.Put(Image{Src: "u"}); err == nil {
		t.Fatal("expected error for empty id")
	}
}
