package phoneme

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	// defaultDictURL is the well-known source the dictionary is fetched from
	// when no local copy exists.
	defaultDictURL = "https://raw.githubusercontent.com/Alexir/CMUdict/master/cmudict-0.7b"

	// dictHeaderMarker must appear in a comment line for the file to be
	// accepted as a genuine CMU pronouncing dictionary.
	dictHeaderMarker = "# CMUdict"

	// commentPrefix marks comment lines in the dictionary file.
	commentPrefix = ";;;"
)

// Dictionary is an immutable word → pronunciations map. Once constructed it
// is never mutated, so concurrent readers need no locking.
type Dictionary struct {
	entries map[string][][]string
}

// Lookup returns the canonical (first listed) pronunciation for word.
// word must already be normalized via [NormalizeWord].
func (d *Dictionary) Lookup(word string) ([]string, bool) {
	prons, ok := d.entries[word]
	if !ok || len(prons) == 0 {
		return nil, false
	}
	return prons[0], true
}

// Pronunciations returns all pronunciation variants for word, in file order.
func (d *Dictionary) Pronunciations(word string) [][]string {
	return d.entries[word]
}

// Len returns the number of distinct base words.
func (d *Dictionary) Len() int {
	return len(d.entries)
}

// ParseDictionary reads CMUdict-format text: each non-comment, non-empty line
// is `WORD SYM1 SYM2 ...`. Variant entries suffixed `(2)`, `(3)`, … are folded
// into one ordered pronunciation list keyed by the base word. The content must
// contain the CMUdict header marker or parsing fails.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	entries := make(map[string][][]string)
	headerSeen := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, commentPrefix) {
			if strings.Contains(line, dictHeaderMarker) {
				headerSeen = true
			}
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		word := parts[0]
		if idx := strings.IndexByte(word, '('); idx >= 0 {
			word = word[:idx] // WORD(2) → WORD, variant appended in file order
		}
		entries[word] = append(entries[word], parts[1:])
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("phoneme: scan dictionary: %w", err)
	}
	if !headerSeen {
		return nil, fmt.Errorf("phoneme: content does not look like a CMUdict file (missing %q marker)", dictHeaderMarker)
	}
	return &Dictionary{entries: entries}, nil
}

// LoaderOption is a functional option for configuring a [Loader].
type LoaderOption func(*Loader)

// WithSourceURL overrides the URL the dictionary is downloaded from when the
// local file is absent.
func WithSourceURL(url string) LoaderOption {
	return func(l *Loader) { l.url = url }
}

// WithHTTPClient overrides the HTTP client used for dictionary downloads.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) { l.client = c }
}

// Loader owns the process-wide dictionary cache. The dictionary is loaded
// lazily on first use and published atomically as an immutable value;
// subsequent calls return the cached dictionary without locking. A failed
// load is not cached — the next access retries instead of permanently
// poisoning the cache. Concurrent first-use callers are collapsed into a
// single load via singleflight.
type Loader struct {
	path   string
	url    string
	client *http.Client

	cache atomic.Pointer[Dictionary]
	group singleflight.Group
}

// NewLoader returns a Loader that reads (and, when absent, downloads) the
// dictionary file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		url:    defaultDictURL,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Load returns the shared dictionary, performing the one-time load on first
// use. All words fall through to later cascade stages when loading fails.
func (l *Loader) Load(ctx context.Context) (*Dictionary, error) {
	if d := l.cache.Load(); d != nil {
		return d, nil
	}
	v, err, _ := l.group.Do("cmudict", func() (any, error) {
		if d := l.cache.Load(); d != nil {
			return d, nil
		}
		d, err := l.load(ctx)
		if err != nil {
			return nil, err
		}
		l.cache.Store(d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Dictionary), nil
}

func (l *Loader) load(ctx context.Context) (*Dictionary, error) {
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		slog.Info("pronunciation dictionary not found, downloading", "path", l.path, "url", l.url)
		if err := l.download(ctx); err != nil {
			return nil, fmt.Errorf("phoneme: download dictionary: %w", err)
		}
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("phoneme: open dictionary %q: %w", l.path, err)
	}
	defer f.Close()

	d, err := ParseDictionary(f)
	if err != nil {
		return nil, err
	}
	slog.Info("pronunciation dictionary loaded", "path", l.path, "words", d.Len())
	return d, nil
}

// download fetches the dictionary to a temporary file in the target directory
// and renames it into place, so a partial download never masquerades as a
// complete dictionary.
func (l *Loader) download(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, l.url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".cmudict-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), l.path)
}
