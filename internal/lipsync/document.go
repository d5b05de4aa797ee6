package lipsync

import (
	"encoding/json"
	"fmt"

	"github.com/voxalign/voxalign/pkg/phoneme"
)

// wordSegmentsKey is the aligner JSON field holding per-word timings.
const wordSegmentsKey = "word_segments"

// Document is an aligner output file. Only the word_segments array is
// interpreted; every other top-level field is held as raw JSON and passed
// through unmodified when the document is rewritten.
type Document struct {
	root     map[string]json.RawMessage
	segments []WordSegment
}

// WordSegment is one timed word from the aligner, with its unknown fields
// preserved.
type WordSegment struct {
	Word  string
	Start float64
	End   float64

	fields map[string]json.RawMessage
}

// ParseDocument decodes aligner JSON. Word segments missing the word field
// are kept (they still occupy their position) with an empty Word.
func ParseDocument(data []byte) (*Document, error) {
	root := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("lipsync: parse aligner document: %w", err)
	}

	doc := &Document{root: root}
	raw, ok := root[wordSegmentsKey]
	if !ok {
		return doc, nil
	}

	var rawSegs []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawSegs); err != nil {
		return nil, fmt.Errorf("lipsync: parse %s: %w", wordSegmentsKey, err)
	}
	doc.segments = make([]WordSegment, len(rawSegs))
	for i, fields := range rawSegs {
		seg := WordSegment{fields: fields}
		if w, ok := fields["word"]; ok {
			_ = json.Unmarshal(w, &seg.Word)
		}
		if s, ok := fields["start"]; ok {
			_ = json.Unmarshal(s, &seg.Start)
		}
		if e, ok := fields["end"]; ok {
			_ = json.Unmarshal(e, &seg.End)
		}
		doc.segments[i] = seg
	}
	return doc, nil
}

// Segments returns the parsed word segments in document order.
func (d *Document) Segments() []WordSegment {
	return d.segments
}

// Words returns just the word text of every segment, in order.
func (d *Document) Words() []string {
	words := make([]string, len(d.segments))
	for i, s := range d.segments {
		words[i] = s.Word
	}
	return words
}

// Annotate attaches a phoneme sequence and its resolution method to the
// segment at index i.
func (d *Document) Annotate(i int, phonemes []string, method phoneme.Method) error {
	if i < 0 || i >= len(d.segments) {
		return fmt.Errorf("lipsync: segment index %d out of range [0,%d)", i, len(d.segments))
	}
	if phonemes == nil {
		phonemes = []string{}
	}
	p, err := json.Marshal(phonemes)
	if err != nil {
		return err
	}
	m, err := json.Marshal(string(method))
	if err != nil {
		return err
	}
	d.segments[i].fields["phonemes"] = p
	d.segments[i].fields["phoneme_method"] = m
	return nil
}

// Marshal re-encodes the document, including any annotations, preserving all
// fields it did not interpret.
func (d *Document) Marshal() ([]byte, error) {
	if _, ok := d.root[wordSegmentsKey]; ok || len(d.segments) > 0 {
		rawSegs := make([]map[string]json.RawMessage, len(d.segments))
		for i, s := range d.segments {
			rawSegs[i] = s.fields
		}
		encoded, err := json.Marshal(rawSegs)
		if err != nil {
			return nil, fmt.Errorf("lipsync: encode %s: %w", wordSegmentsKey, err)
		}
		d.root[wordSegmentsKey] = encoded
	}
	return json.MarshalIndent(d.root, "", "  ")
}
