// Package numbers keeps the local JSON mirrors of known bot numbers and
// admin numbers. The durable store remains the source of truth.
package numbers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/gdbrns/go-whatsapp-session-bot/pkg/validation"
)

// List is a JSON array of numbers persisted in one file.
type List struct {
	path string
	mu   sync.Mutex
}

func NewList(path string) *List {
	return &List{path: path}
}

// Load returns the numbers in the file. A missing file is an empty list.
func (l *List) Load() ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

func (l *List) load() ([]string, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []string{}, nil
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if n := validation.SanitizeNumber(item); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (l *List) save(items []string) error {
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	if err := atomic.WriteFile(l.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("write %s: %w", l.path, err)
	}
	return nil
}

// Add appends number if absent and reports whether the file changed.
func (l *List) Add(number string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(items, number) {
		return false, nil
	}
	return true, l.save(append(items, number))
}

// Remove drops number and reports whether the file changed.
func (l *List) Remove(number string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items, err := l.load()
	if err != nil {
		return false, err
	}
	idx := slices.Index(items, number)
	if idx < 0 {
		return false, nil
	}
	return true, l.save(slices.Delete(items, idx, idx+1))
}

func (l *List) Contains(number string) bool {
	items, err := l.Load()
	return err == nil && slices.Contains(items, number)
}

// Admins merges the admin list file with the configured owner numbers.
// A missing or unreadable file leaves only the owners.
func Admins(path string, owners []string) []string {
	out := append([]string(nil), owners...)
	items, err := NewList(path).Load()
	if err != nil {
		return out
	}
	for _, n := range items {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
