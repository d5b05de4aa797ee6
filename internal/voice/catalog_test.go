package voice

import (
	"strings"
	"testing"
)

func TestList(t *testing.T) {
	t.Parallel()

	voices := List()
	if len(voices) == 0 {
		t.Fatal("catalog is empty")
	}
	for i := 1; i < len(voices); i++ {
		if voices[i-1].ID >= voices[i].ID {
			t.Fatalf("List not sorted: %q before %q", voices[i-1].ID, voices[i].ID)
		}
	}
	for _, v := range voices {
		if v.ModelURL == "" || v.ConfigURL == "" {
			t.Errorf("%s: missing download URLs", v.ID)
		}
		if v.Language == "" || v.Quality == "" {
			t.Errorf("%s: missing metadata", v.ID)
		}
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	v, ok := Find("en_GB-alba-medium")
	if !ok {
		t.Fatal("en_GB-alba-medium not in catalog")
	}
	if v.Language != "en_GB" || v.Quality != "medium" {
		t.Errorf("metadata = %q/%q", v.Language, v.Quality)
	}
	// The URL encodes the upstream repo layout: family/lang/name/quality.
	if !strings.Contains(v.ModelURL, "/en/en_GB/alba/medium/en_GB-alba-medium.onnx") {
		t.Errorf("ModelURL = %q", v.ModelURL)
	}
	if !strings.HasSuffix(v.ModelFile(), ".onnx") || !strings.HasSuffix(v.ConfigFile(), ".onnx.json") {
		t.Errorf("file names = %q, %q", v.ModelFile(), v.ConfigFile())
	}

	if _, ok := Find("xx_XX-nobody-low"); ok {
		t.Error("Find of unknown voice succeeded")
	}
}

func TestByLanguage(t *testing.T) {
	t.Parallel()

	if got := ByLanguage("en_GB"); len(got) == 0 {
		t.Error("no en_GB voices")
	}
	// A bare family tag matches all regions.
	en := ByLanguage("en")
	if len(en) <= len(ByLanguage("en_GB")) {
		t.Error("family match should span regions")
	}
	for _, v := range en {
		if !strings.HasPrefix(v.Language, "en") {
			t.Errorf("%s leaked into en listing", v.ID)
		}
	}
	if got := ByLanguage("zz"); len(got) != 0 {
		t.Errorf("ByLanguage(zz) = %v", got)
	}
}
