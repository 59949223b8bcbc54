package tui

import (
	"fmt"
	"strings"

	"studio-cli/internal/gallery"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// galleryPicker 是图库选择弹窗的状态：模糊过滤 + 光标移动。
// 过滤键是 "id prompt kind" 的拼接，空查询返回全部条目。
type galleryPicker struct {
	query   string
	images  []gallery.Image
	matched []int
	index   int
}

func (p *galleryPicker) SetImages(images []gallery.Image) {
	p.images = append([]gallery.Image(nil), images...)
	p.refilter()
}

func (p *galleryPicker) Reset() {
	p.query = ""
	p.index = 0
	p.refilter()
}

func (p *galleryPicker) Type(r rune) {
	p.query += string(r)
	p.index = 0
	p.refilter()
}

func (p *galleryPicker) Backspace() {
	if p.query == "" {
		return
	}
	runes := []rune(p.query)
	p.query = string(runes[:len(runes)-1])
	p.index = 0
	p.refilter()
}

func (p *galleryPicker) Move(delta int) {
	if len(p.matched) == 0 {
		p.index = 0
		return
	}
	p.index += delta
	if p.index < 0 {
		p.index = 0
	}
	if p.index >= len(p.matched) {
		p.index = len(p.matched) - 1
	}
}

func (p *galleryPicker) Selected() (gallery.Image, bool) {
	if p.index < 0 || p.index >= len(p.matched) {
		return gallery.Image{}, false
	}
	return p.images[p.matched[p.index]], true
}

func (p *galleryPicker) refilter() {
	trimmed := strings.TrimSpace(p.query)
	if trimmed == "" {
		p.matched = make([]int, len(p.images))
		for i := range p.images {
			p.matched[i] = i
		}
		return
	}
	keys := make([]string, len(p.images))
	for i, img := range p.images {
		keys[i] = strings.ToLower(strings.Join([]string{img.ID, img.Prompt, img.Kind}, " "))
	}
	results := fuzzy.Find(strings.ToLower(trimmed), keys)
	p.matched = p.matched[:0]
	for _, res := range results {
		p.matched = append(p.matched, res.Index)
	}
	if p.index >= len(p.matched) {
		p.index = 0
	}
}

var pickerSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)

func (p *galleryPicker) View(height int) string {
	lines := []string{"图库 / Gallery  (Enter 附加 · Esc 取消)"}
	lines = append(lines, "filter: "+p.query+"▌")
	limit := height
	if limit < 3 {
		limit = 8
	}
	if len(p.matched) == 0 {
		lines = append(lines, "  (no matching images)")
	}
	start := 0
	if p.index >= limit {
		start = p.index - limit + 1
	}
	for i := start; i < len(p.matched) && i < start+limit; i++ {
		img := p.images[p.matched[i]]
		label := img.Prompt
		if label == "" {
			label = img.Src
		}
		if len(label) > 48 {
			label = label[:47] + "…"
		}
		line := fmt.Sprintf("%s [%s] %s", shortID(img.ID), img.Kind, label)
		if i == p.index {
			line = pickerSelectedStyle.Render("▶ " + line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
