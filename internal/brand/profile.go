package brand

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Profile is a brand voice definition folded into the agent's system
// prompt. One TOML file per profile under ~/.studio/brands/.
type Profile struct {
	Name     string   `toml:"name"`
	Voice    string   `toml:"voice"`
	Tagline  string   `toml:"tagline"`
	Audience string   `toml:"audience"`
	Palette  []string `toml:"palette"`
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".studio", "brands"), nil
}

func Load(name string) (Profile, error) {
	var p Profile
	if strings.TrimSpace(name) == "" {
		return p, errors.New("brand name is empty")
	}
	d, err := Dir()
	if err != nil {
		return p, err
	}
	data, err := os.ReadFile(filepath.Join(d, name+".toml"))
	if err != nil {
		return p, err
	}
	if err := toml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

func Save(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("brand name is empty")
	}
	d, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d, p.Name+".toml"), data, 0o644)
}

func List() ([]string, error) {
	d, err := Dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".toml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	sort.Strings(names)
	return names, nil
}

// SystemPrompt renders the profile as system-prompt guidance for the
// marketing assistant.
func (p Profile) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a marketing content assistant. You create and edit flyer, campaign and logo images on request, using the available tools.\n")
	if p.Name == "" {
		return b.String()
	}
	fmt.Fprintf(&b, "Active brand: %s.\n", p.Name)
	if p.Voice != "" {
		fmt.Fprintf(&b, "Brand voice: %s.\n", p.Voice)
	}
	if p.Tagline != "" {
		fmt.Fprintf(&b, "Tagline: %q.\n", p.Tagline)
	}
	if p.Audience != "" {
		fmt.Fprintf(&b, "Target audience: %s.\n", p.Audience)
	}
	if len(p.Palette) > 0 {
		fmt.Fprintf(&b, "Color palette: %s.\n", strings.Join(p.Palette, ", "))
	}
	return b.String()
}
