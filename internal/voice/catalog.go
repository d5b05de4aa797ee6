// Package voice holds the catalogue of supported neural voices and takes care
// of fetching their model files into the local models directory.
package voice

import (
	"fmt"
	"sort"
	"strings"
)

// Voice describes one downloadable neural voice.
type Voice struct {
	// ID is the canonical voice identifier, e.g. "en_GB-alba-medium".
	ID string

	// DisplayName is a human-friendly name for listings.
	DisplayName string

	// Language is the BCP-47-ish language tag, e.g. "en_GB".
	Language string

	// Quality is the model quality tier: "low", "medium" or "high".
	Quality string

	// ModelURL and ConfigURL point at the ONNX model and its JSON config.
	ModelURL  string
	ConfigURL string
}

// ModelFile returns the local file name of the ONNX model.
func (v Voice) ModelFile() string { return v.ID + ".onnx" }

// ConfigFile returns the local file name of the model config.
func (v Voice) ConfigFile() string { return v.ID + ".onnx.json" }

// repoBase is the root of the upstream voice model repository.
const repoBase = "https://huggingface.co/rhasspy/piper-voices/resolve/main"

// catalog lists the voices this tool knows how to download. IDs follow the
// upstream "<lang_REGION>-<name>-<quality>" convention, which also encodes the
// repository path of the model files.
var catalog = func() map[string]Voice {
	ids := map[string]string{
		"en_GB-alba-medium":                  "Alba (Scottish English)",
		"en_GB-northern_english_male-medium": "Northern English Male",
		"en_US-amy-medium":                   "Amy (US English)",
		"en_US-lessac-medium":                "Lessac (US English)",
		"en_US-ryan-high":                    "Ryan (US English)",
		"de_DE-thorsten-medium":              "Thorsten (German)",
		"fr_FR-siwis-medium":                 "Siwis (French)",
		"es_ES-davefx-medium":                "DaveFX (Spanish)",
	}
	m := make(map[string]Voice, len(ids))
	for id, name := range ids {
		v, err := fromID(id, name)
		if err != nil {
			panic(err)
		}
		m[id] = v
	}
	return m
}()

// fromID derives a Voice, including its download URLs, from a canonical id.
func fromID(id, displayName string) (Voice, error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return Voice{}, fmt.Errorf("voice: malformed id %q, want <lang>-<name>-<quality>", id)
	}
	lang, name, quality := parts[0], parts[1], parts[2]
	family, _, ok := strings.Cut(lang, "_")
	if !ok {
		return Voice{}, fmt.Errorf("voice: malformed language %q in id %q", lang, id)
	}
	base := fmt.Sprintf("%s/%s/%s/%s/%s/%s.onnx", repoBase, family, lang, name, quality, id)
	return Voice{
		ID:          id,
		DisplayName: displayName,
		Language:    lang,
		Quality:     quality,
		ModelURL:    base + "?download=true",
		ConfigURL:   base + ".json?download=true",
	}, nil
}

// List returns all known voices ordered by id.
func List() []Voice {
	out := make([]Voice, 0, len(catalog))
	for _, v := range catalog {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByLanguage returns the known voices whose language matches lang
// (case-insensitive, e.g. "en_GB" or just "en").
func ByLanguage(lang string) []Voice {
	lang = strings.ToLower(lang)
	var out []Voice
	for _, v := range List() {
		vl := strings.ToLower(v.Language)
		if vl == lang || strings.HasPrefix(vl, lang+"_") {
			out = append(out, v)
		}
	}
	return out
}

// Find looks up a voice by exact id.
func Find(id string) (Voice, bool) {
	v, ok := catalog[id]
	return v, ok
}
