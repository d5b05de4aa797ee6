package lipsync

import (
	"reflect"
	"testing"
)

func TestAlignWords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		aligner []string
		tokens  []string
		want    []int
	}{
		{
			name:    "exact one-to-one",
			aligner: []string{"hello", "world"},
			tokens:  []string{"Hello,", "world!"},
			want:    []int{0, 1},
		},
		{
			name:    "aligner dropped a word",
			aligner: []string{"hello", "friend"},
			tokens:  []string{"hello", "there", "friend"},
			want:    []int{0, 2},
		},
		{
			name:    "aligner transcription differs slightly",
			aligner: []string{"color", "wheel"},
			tokens:  []string{"colour", "wheel"},
			want:    []int{0, 1},
		},
		{
			name:    "unmatchable aligner word",
			aligner: []string{"hello", "xqzzk", "world"},
			tokens:  []string{"hello", "beautiful", "world"},
			want:    []int{0, -1, 2},
		},
		{
			name:    "more aligner words than tokens",
			aligner: []string{"hello", "world", "again"},
			tokens:  []string{"hello", "world"},
			want:    []int{0, 1, -1},
		},
		{
			name:    "empty aligner word",
			aligner: []string{"hello", "", "world"},
			tokens:  []string{"hello", "world"},
			want:    []int{0, -1, 1},
		},
		{
			name:    "no tokens",
			aligner: []string{"hello"},
			tokens:  nil,
			want:    []int{-1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := AlignWords(tt.aligner, tt.tokens)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AlignWords(%v, %v) = %v, want %v", tt.aligner, tt.tokens, got, tt.want)
			}
		})
	}
}

func TestAlignWordsMonotonic(t *testing.T) {
	t.Parallel()

	// Repeated words must not map two aligner words onto the same token.
	got := AlignWords(
		[]string{"the", "cat", "the", "hat"},
		[]string{"the", "cat", "the", "hat"},
	)
	if want := []int{0, 1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	seen := map[int]bool{}
	for _, j := range got {
		if j < 0 {
			continue
		}
		if seen[j] {
			t.Fatalf("token %d matched twice: %v", j, got)
		}
		seen[j] = true
	}
}
