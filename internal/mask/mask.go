// Package mask protects designated literal terms from being altered by
// the translation step. Mask wraps each occurrence in __markers__ that
// survive translation untouched; Unmask strips them afterwards.
package mask

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultTerms is used when no term list file is available.
var DefaultTerms = []string{"server", "API", "cloud"}

// Masker performs reversible term substitution.
type Masker struct {
	terms    []string
	maskRe   *regexp.Regexp
	unmaskRe *regexp.Regexp
}

// New compiles a masker for the given terms. An empty term set yields a
// masker whose Mask and Unmask are the identity.
func New(terms []string) *Masker {
	m := &Masker{terms: terms}
	if len(terms) == 0 {
		return m
	}

	escaped := make([]string, len(terms))
	for i, t := range terms {
		escaped[i] = regexp.QuoteMeta(t)
	}
	alt := strings.Join(escaped, "|")
	m.maskRe = regexp.MustCompile(`(?i)\b(` + alt + `)\b`)
	m.unmaskRe = regexp.MustCompile(`(?i)__(` + alt + `)__`)
	return m
}

// Terms returns the protected term list.
func (m *Masker) Terms() []string { return m.terms }

// Mask wraps each protected term occurrence in __markers__, preserving
// the original casing inside the markers.
func (m *Masker) Mask(text string) string {
	if m.maskRe == nil {
		return text
	}
	return m.maskRe.ReplaceAllString(text, "__${1}__")
}

// Unmask strips the markers, keeping whatever casing is inside them.
func (m *Masker) Unmask(text string) string {
	if m.unmaskRe == nil {
		return text
	}
	return m.unmaskRe.ReplaceAllString(text, "$1")
}

// LoadTerms reads one literal term per line from path, skipping blank
// lines. A missing file falls back to DefaultTerms with a warning.
func LoadTerms(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("term list not found, using built-in defaults", "path", path)
			return DefaultTerms, nil
		}
		return nil, fmt.Errorf("open term list %s: %w", path, err)
	}
	defer f.Close()

	var terms []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			terms = append(terms, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read term list %s: %w", path, err)
	}
	return terms, nil
}
