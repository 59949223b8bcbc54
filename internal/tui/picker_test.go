package tui

import (
	"testing"

	"studio-cli/internal/gallery"
)

func pickerImages() []gallery.Image {
	return []gallery.Image{
		{ID: "aaa-111", Src: "https://img/a.png", Prompt: "summer sale flyer", Kind: "image"},
		{ID: "bbb-222", Src: "https://img/b.png", Prompt: "minimal coffee logo", Kind: "logo"},
		{ID: "ccc-333", Src: "https://img/c.png", Prompt: "winter campaign banner", Kind: "image"},
	}
}

func TestPickerFuzzyFilter(t *testing.T) {
	var p galleryPicker
	p.SetImages(pickerImages())
	if len(p.matched) != 3 {
		t.Fatalf("empty query must match all, got %d", len(p.matched))
	}

	for _, r := range "cofe" {
		p.Type(r)
	}
	img, ok := p.Selected()
	if !ok || img.ID != "bbb-222" {
		t.Fatalf("expected coffee logo, got %+v ok=%v", img, ok)
	}

	p.Backspace()
	p.Backspace()
	p.Backspace()
	p.Backspace()
	if len(p.matched) != 3 {
		t.Fatalf("cleared query must match all again, got %d", len(p.matched))
	}
}

func TestPickerMoveClamps(t *testing.T) {
	var p galleryPicker
	p.SetImages(pickerImages())
	p.Move(-5)
	if p.index != 0 {
		t.Fatalf("index %d", p.index)
	}
	p.Move(10)
	if p.index != 2 {
		t.Fatalf("index %d", p.index)
	}
}

func TestPickerNoMatch(t *testing.T) {
	var p galleryPicker
	p.SetImages(pickerImages())
	for _, r := range "zzzzzz" {
		p.Type(r)
	}
	if _, ok := p.Selected(); ok {
		t.Fatal("selection on empty match set")
	}
}
