package gallery

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Image is one gallery entry. Src is the freshest known URL for the id;
// edits replace Src in place so older transcript references go stale
// until the synchronizer remaps them.
type Image struct {
	ID      string    `json:"id"`
	Src     string    `json:"src"`
	Prompt  string    `json:"prompt,omitempty"`
	Kind    string    `json:"kind,omitempty"` // image|logo
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// Store persists gallery entries as a JSONL file, one image per line;
// later lines for the same id win.
type Store struct {
	mu   sync.Mutex
	Path string
}

func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".studio", "gallery.jsonl"), nil
}

func NewDefault() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return &Store{Path: path}, nil
}

func (s *Store) ensureDir() error {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return errors.New("gallery store path is empty")
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}

// Put appends an entry. An existing id gets a new Src (an edit); the
// created timestamp of the first record is preserved on load.
func (s *Store) Put(img Image) error {
	if s == nil {
		return errors.New("gallery store is nil")
	}
	if strings.TrimSpace(img.ID) == "" {
		return errors.New("gallery image id is empty")
	}
	now := time.Now()
	if img.Created.IsZero() {
		img.Created = now
	}
	img.Updated = now
	if err := s.ensureDir(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(img)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// List returns the current gallery snapshot, newest update first.
func (s *Store) List() ([]Image, error) {
	if s == nil || strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("gallery store path is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	byID := map[string]Image{}
	order := []string{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var img Image
		if err := json.Unmarshal([]byte(line), &img); err != nil {
			continue
		}
		if img.ID == "" {
			continue
		}
		if prev, ok := byID[img.ID]; ok {
			if !prev.Created.IsZero() {
				img.Created = prev.Created
			}
		} else {
			order = append(order, img.ID)
		}
		byID[img.ID] = img
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	out := make([]Image, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Updated.After(out[j].Updated)
	})
	return out, nil
}
