package activity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// UnknownName is shown for empty identifiers.
const UnknownName = "Unknown"

// NameResolver maps raw account identifiers to display names. It is built
// once at startup and never mutated.
type NameResolver struct {
	names map[string]string
}

// NewNameResolver copies m into a resolver.
func NewNameResolver(m map[string]string) *NameResolver {
	names := make(map[string]string, len(m))
	for k, v := range m {
		names[k] = v
	}
	return &NameResolver{names: names}
}

// LoadNameMap reads a name map file of "raw > display" lines. A missing file
// yields an empty resolver.
func LoadNameMap(path string) (*NameResolver, error) {
	if path == "" {
		return NewNameResolver(nil), nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewNameResolver(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open name map: %w", err)
	}
	defer f.Close()
	return ParseNameMap(f)
}

// ParseNameMap parses "raw > display" lines. Lines without a separator or
// with an empty side are skipped.
func ParseNameMap(r io.Reader) (*NameResolver, error) {
	names := make(map[string]string)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw, display, ok := strings.Cut(strings.TrimSpace(sc.Text()), ">")
		if !ok {
			continue
		}
		raw, display = strings.TrimSpace(raw), strings.TrimSpace(display)
		if raw == "" || display == "" {
			continue
		}
		names[raw] = display
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read name map: %w", err)
	}
	return &NameResolver{names: names}, nil
}

// Resolve returns the display name for raw, raw itself when unmapped, or
// UnknownName when raw is empty. A nil resolver only applies the fallbacks.
func (r *NameResolver) Resolve(raw string) string {
	if raw == "" {
		return UnknownName
	}
	if r != nil {
		if name, ok := r.names[raw]; ok {
			return name
		}
	}
	return raw
}

func (r *NameResolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.names)
}
