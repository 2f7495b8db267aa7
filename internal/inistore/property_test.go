package inistore_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckfox-webcfg/internal/inistore"
	"luckfox-webcfg/testutil"
)

const propertyRuns = 500

// contentLines returns the lines of data with terminators removed.
func contentLines(data []byte) []string {
	var out []string
	for _, l := range inistore.Parse(data).Lines {
		out = append(out, strings.TrimRight(l.Raw, "\r\n"))
	}
	return out
}

// keyCount counts entry lines for key inside section.
func keyCount(data []byte, section, key string) int {
	n := 0
	current, in := "", false
	for _, l := range inistore.Parse(data).Lines {
		switch l.Kind {
		case inistore.KindHeader:
			current, in = l.Name, true
		case inistore.KindEntry:
			if in && current == section && l.Key == key {
				n++
			}
		}
	}
	return n
}

func TestRewriteIsIdempotent(t *testing.T) {
	g := testutil.NewDocGenerator(1)
	for i := 0; i < propertyRuns; i++ {
		src := g.Document(6)
		s, k := g.Target()
		entries := []inistore.Entry{{Section: s, Key: k, Value: g.Value()}}

		once := inistore.Rewrite(src, entries)
		twice := inistore.Rewrite(once, entries)
		require.Equal(t, string(once), string(twice), "run %d: [%s] %s on %q", i, s, k, src)
	}
}

func TestRewritePreservesOtherLines(t *testing.T) {
	g := testutil.NewDocGenerator(2)
	for i := 0; i < propertyRuns; i++ {
		src := g.Document(6)
		section := g.Sections()
		entries := []inistore.Entry{{Section: "fresh.0", Key: "key_0", Value: g.Value()}}
		if len(section) > 0 {
			entries = append(entries, inistore.Entry{Section: section[0], Key: "added", Value: "1"})
		}

		out := contentLines(inistore.Rewrite(src, entries))
		want := contentLines(src)

		// want must be a subsequence of out.
		j := 0
		for _, l := range out {
			if j < len(want) && l == want[j] {
				j++
			}
		}
		require.Equal(t, len(want), j, "run %d: original lines missing or reordered in output of %q", i, src)
	}
}

func TestRewriteThenLookup(t *testing.T) {
	g := testutil.NewDocGenerator(3)
	for i := 0; i < propertyRuns; i++ {
		src := g.Document(6)
		s, k := g.Target()
		v := g.Value()

		out := inistore.Rewrite(src, []inistore.Entry{{Section: s, Key: k, Value: v}})
		got, ok := inistore.Parse(out).Lookup(s, k)
		require.True(t, ok, "run %d: [%s] %s not found after rewrite", i, s, k)
		require.Equal(t, v, got, "run %d", i)
	}
}

func TestRewriteSynthesizesSection(t *testing.T) {
	g := testutil.NewDocGenerator(4)
	for i := 0; i < propertyRuns; i++ {
		src := g.Document(6)
		v := g.Value()

		out := string(inistore.Rewrite(src, []inistore.Entry{{Section: "fresh.9", Key: "enable", Value: v}}))
		assert.True(t, strings.HasPrefix(out, string(src)), "run %d: prior content not kept as prefix", i)
		assert.True(t, strings.HasSuffix(out, "[fresh.9]\nenable = "+v+"\n"), "run %d: output %q", i, out)
	}
}

func TestRewriteNeverDuplicatesKey(t *testing.T) {
	g := testutil.NewDocGenerator(5)
	for i := 0; i < propertyRuns; i++ {
		src := g.Document(6)
		s, k := g.Target()

		out := inistore.Rewrite(src, []inistore.Entry{
			{Section: s, Key: k, Value: g.Value()},
			{Section: s, Key: k, Value: g.Value()},
		})
		require.Equal(t, 1, keyCount(out, s, k), "run %d: [%s] %s in %q", i, s, k, out)
	}
}
