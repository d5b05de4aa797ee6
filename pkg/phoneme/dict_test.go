package phoneme

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/sync/errgroup"
)

const sampleDict = `;;; # CMUdict  --  Major Version: 0.07
;;; comment line
HELLO  HH AH0 L OW1
WORLD  W ER1 L D
READ  R EH1 D
READ(2)  R IY1 D
`

func TestParseDictionary(t *testing.T) {
	t.Parallel()

	d, err := ParseDictionary(strings.NewReader(sampleDict))
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}

	pron, ok := d.Lookup("HELLO")
	if !ok {
		t.Fatal("HELLO not found")
	}
	if want := []string{"HH", "AH0", "L", "OW1"}; !reflect.DeepEqual(pron, want) {
		t.Errorf("HELLO = %v, want %v", pron, want)
	}

	// Variant entries fold into the base word; Lookup returns the canonical
	// first pronunciation.
	pron, ok = d.Lookup("READ")
	if !ok {
		t.Fatal("READ not found")
	}
	if want := []string{"R", "EH1", "D"}; !reflect.DeepEqual(pron, want) {
		t.Errorf("READ = %v, want canonical %v", pron, want)
	}
	if variants := d.Pronunciations("READ"); len(variants) != 2 {
		t.Errorf("READ has %d variants, want 2", len(variants))
	}

	if _, ok := d.Lookup("MISSING"); ok {
		t.Error("Lookup(MISSING) = true, want false")
	}
}

func TestParseDictionaryRejectsForeignContent(t *testing.T) {
	t.Parallel()

	// Plausible-looking dictionary lines without the header marker must be
	// rejected — this is what distinguishes CMUdict from an error page.
	if _, err := ParseDictionary(strings.NewReader("HELLO HH AH0 L OW1\n")); err == nil {
		t.Fatal("expected error for content without the CMUdict header")
	}
	if _, err := ParseDictionary(strings.NewReader("<html>404 not found</html>")); err == nil {
		t.Fatal("expected error for HTML content")
	}
}

func TestLoaderReadsLocalFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cmudict.txt")
	if err := os.WriteFile(path, []byte(sampleDict), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLoader(path, WithSourceURL("http://invalid.test/should-not-be-hit"))
	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}

	// Second load must serve the cached dictionary (same pointer).
	d2, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d != d2 {
		t.Error("second Load returned a different dictionary instance")
	}
}

func TestLoaderDownloadsWhenMissing(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleDict))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cmudict.txt")
	l := NewLoader(path, WithSourceURL(srv.URL), WithHTTPClient(srv.Client()))

	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("download hit %d times, want 1", got)
	}
	// The downloaded copy must persist on disk.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("dictionary not written to %s: %v", path, err)
	}
}

func TestLoaderRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleDict))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cmudict.txt")
	l := NewLoader(path, WithSourceURL(srv.URL), WithHTTPClient(srv.Client()))

	if _, err := l.Load(context.Background()); err == nil {
		t.Fatal("first load should fail")
	}
	// A failed load must not poison the cache: the next call retries.
	d, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("Len = %d, want 3", d.Len())
	}
}

func TestLoaderConcurrentFirstUse(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte(sampleDict))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "cmudict.txt")
	l := NewLoader(path, WithSourceURL(srv.URL), WithHTTPClient(srv.Client()))

	var g errgroup.Group
	for range 16 {
		g.Go(func() error {
			_, err := l.Load(context.Background())
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("download hit %d times under concurrent first use, want 1", got)
	}
}
