// Package testutil provides test utilities for lfcfg.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
)

// DocGenerator creates random INI documents for property tests. Output is
// deterministic for a given seed.
type DocGenerator struct {
	rng      *rand.Rand
	sections []string
	keys     map[string][]string
}

// NewDocGenerator creates a generator seeded with seed.
func NewDocGenerator(seed int64) *DocGenerator {
	return &DocGenerator{
		rng:  rand.New(rand.NewSource(seed)),
		keys: make(map[string][]string),
	}
}

// Sections returns the section names used by the last generated document.
func (g *DocGenerator) Sections() []string {
	return g.sections
}

// Keys returns the keys written under section in the last document.
func (g *DocGenerator) Keys(section string) []string {
	return g.keys[section]
}

// Document generates a document with up to maxSections sections. It mixes
// in comments, blank lines, CRLF endings, empty sections, repeated section
// headers, entries before the first header and a missing final newline.
func (g *DocGenerator) Document(maxSections int) []byte {
	g.sections = nil
	g.keys = make(map[string][]string)

	var b strings.Builder
	eol := "\n"
	if g.rng.Intn(5) == 0 {
		eol = "\r\n"
	}

	if g.rng.Intn(3) == 0 {
		fmt.Fprintf(&b, "# generated%s", eol)
		fmt.Fprintf(&b, "orphan = %d%s", g.rng.Intn(100), eol)
	}

	n := g.rng.Intn(maxSections + 1)
	for i := 0; i < n; i++ {
		var name string
		if len(g.sections) > 0 && g.rng.Intn(5) == 0 {
			// Repeated header. Key numbering continues so keys stay unique.
			name = pick(g.rng, g.sections)
		} else {
			name = fmt.Sprintf("%s.%d", pick(g.rng, []string{"video", "storage", "audio", "network"}), i)
			g.sections = append(g.sections, name)
		}
		fmt.Fprintf(&b, "[%s]%s", name, eol)

		for j := g.rng.Intn(5); j > 0; j-- {
			switch g.rng.Intn(6) {
			case 0:
				fmt.Fprintf(&b, "; note %d%s", j, eol)
			case 1:
				b.WriteString(eol)
			default:
				key := fmt.Sprintf("key_%d", len(g.keys[name]))
				g.keys[name] = append(g.keys[name], key)
				pad := strings.Repeat(" ", g.rng.Intn(3))
				fmt.Fprintf(&b, "%s%s=%s%d%s", key, pad, pad, g.rng.Intn(1000), eol)
			}
		}
		if g.rng.Intn(3) == 0 {
			b.WriteString(eol)
		}
	}

	out := b.String()
	if g.rng.Intn(6) == 0 {
		out = strings.TrimRight(out, "\r\n")
	}
	return []byte(out)
}

// Target picks a section and key for an update. About a third of the time
// the section is new, and about half the time the key is new.
func (g *DocGenerator) Target() (section, key string) {
	if len(g.sections) == 0 || g.rng.Intn(3) == 0 {
		return fmt.Sprintf("fresh.%d", g.rng.Intn(3)), "key_0"
	}
	section = pick(g.rng, g.sections)
	if keys := g.keys[section]; len(keys) > 0 && g.rng.Intn(2) == 0 {
		return section, pick(g.rng, keys)
	}
	return section, fmt.Sprintf("new_%d", g.rng.Intn(3))
}

// Value returns a random value.
func (g *DocGenerator) Value() string {
	return fmt.Sprintf("v%d", g.rng.Intn(10000))
}

func pick(rng *rand.Rand, from []string) string {
	return from[rng.Intn(len(from))]
}
