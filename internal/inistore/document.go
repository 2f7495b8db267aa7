package inistore

import (
	"fmt"
	"strings"
)

// Kind classifies a line of an INI document.
type Kind int

const (
	KindOpaque Kind = iota // blank, comment or unrecognised
	KindHeader             // [section]
	KindEntry              // key = value
)

// Line is one line of a document. Raw holds the bytes exactly as read,
// including the terminator when the line had one.
type Line struct {
	Raw   string
	Kind  Kind
	Name  string // section name, headers only
	Key   string
	Value string
}

// Document is an INI file held as an ordered list of lines.
type Document struct {
	Lines []Line
}

// Entry is a single section/key assignment.
type Entry struct {
	Section string
	Key     string
	Value   string
}

// Parse splits data into lines and classifies each of them.
// Parsing never fails: anything that is not a header or an entry is opaque.
func Parse(data []byte) Document {
	var doc Document
	for _, raw := range splitLines(string(data)) {
		doc.Lines = append(doc.Lines, parseLine(raw))
	}
	return doc
}

// splitLines splits s after every '\n'. The final line keeps no terminator
// if the input did not end with one.
func splitLines(s string) []string {
	var lines []string
	for len(s) > 0 {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			lines = append(lines, s)
			break
		}
		lines = append(lines, s[:i+1])
		s = s[i+1:]
	}
	return lines
}

func parseLine(raw string) Line {
	text := strings.TrimSpace(raw)
	switch {
	case text == "", text[0] == ';', text[0] == '#':
		return Line{Raw: raw}
	case text[0] == '[':
		name := text[1:]
		if i := strings.IndexByte(name, ']'); i >= 0 {
			name = name[:i]
		}
		return Line{Raw: raw, Kind: KindHeader, Name: strings.TrimSpace(name)}
	}
	key, value, ok := strings.Cut(text, "=")
	if !ok {
		return Line{Raw: raw}
	}
	return Line{
		Raw:   raw,
		Kind:  KindEntry,
		Key:   strings.TrimSpace(key),
		Value: strings.TrimSpace(value),
	}
}

// Lookup returns the value of the first key line matching key inside a
// section named section. Lines before the first header belong to no
// section and never match.
func (d Document) Lookup(section, key string) (string, bool) {
	inSection := false
	for _, l := range d.Lines {
		switch l.Kind {
		case KindHeader:
			inSection = l.Name == section
		case KindEntry:
			if inSection && l.Key == key {
				return l.Value, true
			}
		}
	}
	return "", false
}

// Sections returns the section names in the order their headers appear.
// Repeated headers are reported once.
func (d Document) Sections() []string {
	var names []string
	seen := make(map[string]bool)
	for _, l := range d.Lines {
		if l.Kind == KindHeader && !seen[l.Name] {
			seen[l.Name] = true
			names = append(names, l.Name)
		}
	}
	return names
}

// Rewrite applies entries to src in a single pass and returns the new
// document. Matching key lines are replaced in place with "key = value",
// keys missing from an existing section are appended at the end of that
// section, and sections that do not exist are appended after all other
// content. Every other line is copied unchanged.
//
// When entries repeat a section/key pair the last value wins. If the
// document repeats a key that is being updated, the first occurrence is
// replaced and the later ones are dropped. A section whose header appears
// more than once is treated as one section: an existing key is replaced
// under whichever header holds it, and a missing key is appended to the
// first.
func Rewrite(src []byte, entries []Entry) []byte {
	doc := Parse(src)
	r := &rewriter{pending: coalesce(entries)}
	for _, p := range r.pending {
		_, p.present = doc.Lookup(p.Section, p.Key)
	}
	for _, l := range doc.Lines {
		r.line(l)
	}
	r.closeSection()
	r.appendMissing()
	return []byte(r.out.String())
}

type pendingEntry struct {
	Entry
	done bool

	// present is set when the key already exists in some header of the
	// section, so it is replaced there rather than appended.
	present bool
}

// coalesce collapses repeated section/key pairs, keeping the position of
// the first and the value of the last.
func coalesce(entries []Entry) []*pendingEntry {
	index := make(map[[2]string]int, len(entries))
	out := make([]*pendingEntry, 0, len(entries))
	for _, e := range entries {
		k := [2]string{e.Section, e.Key}
		if i, ok := index[k]; ok {
			out[i].Value = e.Value
			continue
		}
		index[k] = len(out)
		out = append(out, &pendingEntry{Entry: e})
	}
	return out
}

type rewriter struct {
	out       strings.Builder
	pending   []*pendingEntry
	current   string
	inSection bool
	// held collects blank lines seen since the last non-blank line. They
	// are written after any keys appended to the section, so appended keys
	// sit directly under the section's existing content.
	held []string
}

func (r *rewriter) line(l Line) {
	switch l.Kind {
	case KindHeader:
		r.closeSection()
		r.current, r.inSection = l.Name, true
		r.out.WriteString(l.Raw)
	case KindEntry:
		r.flushHeld()
		p := r.match(l.Key)
		if p == nil {
			r.out.WriteString(l.Raw)
			return
		}
		if !p.done {
			fmt.Fprintf(&r.out, "%s = %s%s", p.Key, p.Value, terminator(l.Raw))
			p.done = true
		}
	default:
		if strings.TrimSpace(l.Raw) == "" {
			r.held = append(r.held, l.Raw)
			return
		}
		r.flushHeld()
		r.out.WriteString(l.Raw)
	}
}

func (r *rewriter) match(key string) *pendingEntry {
	if !r.inSection {
		return nil
	}
	for _, p := range r.pending {
		if p.Section == r.current && p.Key == key {
			return p
		}
	}
	return nil
}

// closeSection appends the unsatisfied entries of the section being left.
func (r *rewriter) closeSection() {
	if r.inSection {
		for _, p := range r.pending {
			if !p.done && !p.present && p.Section == r.current {
				r.writeEntry(p)
			}
		}
	}
	r.flushHeld()
}

func (r *rewriter) flushHeld() {
	for _, raw := range r.held {
		r.out.WriteString(raw)
	}
	r.held = r.held[:0]
}

// appendMissing writes one new section per remaining section name, in the
// order those sections were first requested.
func (r *rewriter) appendMissing() {
	for i, p := range r.pending {
		if p.done {
			continue
		}
		r.separate()
		fmt.Fprintf(&r.out, "[%s]\n", p.Section)
		for _, q := range r.pending[i:] {
			if !q.done && q.Section == p.Section {
				r.writeEntry(q)
			}
		}
	}
}

func (r *rewriter) writeEntry(p *pendingEntry) {
	r.breakLine()
	fmt.Fprintf(&r.out, "%s = %s\n", p.Key, p.Value)
	p.done = true
}

// breakLine terminates a final line that was read without a newline.
func (r *rewriter) breakLine() {
	s := r.out.String()
	if s != "" && s[len(s)-1] != '\n' {
		r.out.WriteByte('\n')
	}
}

// separate puts a blank line before a new section unless the output is
// empty or already ends with one.
func (r *rewriter) separate() {
	if r.out.Len() == 0 {
		return
	}
	r.breakLine()
	s := r.out.String()
	body := s[:len(s)-1]
	last := body[strings.LastIndexByte(body, '\n')+1:]
	if strings.TrimSpace(last) != "" {
		r.out.WriteByte('\n')
	}
}

// terminator returns the line ending of raw: "\r\n", "\n" or "".
func terminator(raw string) string {
	switch {
	case strings.HasSuffix(raw, "\r\n"):
		return "\r\n"
	case strings.HasSuffix(raw, "\n"):
		return "\n"
	}
	return ""
}
