package imageresolve

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var fixedClock = WithClock(func() time.Time { return time.UnixMilli(1700000000000) })

// Products without any image resolve straight to a placeholder naming the product
func TestProperty_EmptyCandidatesYieldNamedPlaceholder(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("placeholder carries the product name and is never empty", prop.ForAll(
		func(name string, blanks int) bool {
			candidates := make([]string, blanks)
			for i := range candidates {
				candidates[i] = strings.Repeat(" ", i)
			}
			r := New(candidates, name)

			attempt := r.Current()
			if attempt.URL == "" || !r.Exhausted() || r.Loading() {
				return false
			}
			u, err := url.Parse(attempt.URL)
			if err != nil {
				return false
			}
			return u.Query().Get("text") == strings.TrimSpace(name)
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z0-9 ]{0,30}`),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// A failing candidate never takes more than three network attempts
func TestProperty_FallbackIsBounded(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("at most 3 attempts before exhaustion, states never regress", prop.ForAll(
		func(host string, path string) bool {
			r := New([]string{"https://" + host + "/" + path}, "Vestido", fixedClock)

			last := r.State()
			for i := 0; i < 10 && !r.Exhausted(); i++ {
				r.Failed(r.Current().Gen)
				if r.State() < last {
					return false
				}
				last = r.State()
			}
			return r.Exhausted() && r.Attempts() <= 3 && r.Current().URL != ""
		},
		gen.OneConstOf("i.ibb.co", "ibb.co", "postimg.cc", "i.postimg.cc", "example.com", "cdn.shop.co"),
		gen.RegexMatch(`[a-z0-9]{1,12}\.jpg`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestFailed_AlternateThenCacheBustThenPlaceholder(t *testing.T) {
	r := New([]string{"https://i.ibb.co/abc/dress.jpg"}, "Vestido Rosa", fixedClock)

	if r.State() != Loading || !r.Loading() || r.Attempts() != 1 {
		t.Fatalf("unexpected initial state %s loading=%v attempts=%d", r.State(), r.Loading(), r.Attempts())
	}

	r.Failed(r.Current().Gen)
	if r.State() != ShowingAlternate {
		t.Fatalf("expected showing_alternate, got %s", r.State())
	}
	if got := r.Current().URL; got != "https://ibb.co/abc/dress.jpg" {
		t.Errorf("unexpected alternate %s", got)
	}

	r.Failed(r.Current().Gen)
	if r.State() != RetryingOriginal {
		t.Fatalf("expected retrying_original, got %s", r.State())
	}
	if got := r.Current().URL; got != "https://i.ibb.co/abc/dress.jpg?t=1700000000000" {
		t.Errorf("unexpected cache-busted url %s", got)
	}

	r.Failed(r.Current().Gen)
	if !r.Exhausted() || r.Loading() {
		t.Fatalf("expected exhausted and not loading, got %s loading=%v", r.State(), r.Loading())
	}
	if got := r.Current().URL; got != DefaultPlaceholderBase+"?text=Vestido+Rosa" {
		t.Errorf("unexpected placeholder %s", got)
	}
	if r.Attempts() != 3 {
		t.Errorf("expected 3 attempts, got %d", r.Attempts())
	}
}

func TestFailed_NoMirrorSkipsAlternate(t *testing.T) {
	r := New([]string{"https://example.com/a.jpg?w=400"}, "Top", fixedClock)

	r.Failed(r.Current().Gen)
	if r.State() != RetryingOriginal {
		t.Fatalf("expected retrying_original, got %s", r.State())
	}
	if got := r.Current().URL; got != "https://example.com/a.jpg?w=400&t=1700000000000" {
		t.Errorf("unexpected cache-busted url %s", got)
	}

	r.Failed(r.Current().Gen)
	if !r.Exhausted() || r.Attempts() != 2 {
		t.Errorf("expected exhaustion after 2 attempts, got %s after %d", r.State(), r.Attempts())
	}
}

func TestStaleSignalsAreIgnored(t *testing.T) {
	r := New([]string{"https://i.ibb.co/a.jpg", "https://i.ibb.co/b.jpg"}, "Set", fixedClock)

	stale := r.Current().Gen
	if err := r.Select(1); err != nil {
		t.Fatalf("Select failed: %v", err)
	}

	if r.Failed(stale) {
		t.Error("failure for a superseded attempt should be ignored")
	}
	if r.Loaded(stale) {
		t.Error("load for a superseded attempt should be ignored")
	}
	if r.State() != Loading || r.Current().URL != "https://i.ibb.co/b.jpg" {
		t.Errorf("state changed by stale signal: %s %s", r.State(), r.Current().URL)
	}
}

func TestSelect_ResetsState(t *testing.T) {
	r := New([]string{"https://example.com/a.jpg", "https://example.com/b.jpg"}, "Jumpsuit", fixedClock)
	r.Failed(r.Current().Gen)
	r.Failed(r.Current().Gen)
	if !r.Exhausted() {
		t.Fatal("expected first candidate to be exhausted")
	}

	if err := r.Select(1); err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if r.Exhausted() || !r.Loading() || r.Attempts() != 1 || r.State() != Loading {
		t.Errorf("expected fresh state, got %s loading=%v attempts=%d", r.State(), r.Loading(), r.Attempts())
	}

	if err := r.Select(2); err != ErrIndexOutOfRange {
		t.Errorf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestLoaded_ClearsLoading(t *testing.T) {
	r := New([]string{"https://example.com/a.jpg"}, "Top")
	if !r.Loaded(r.Current().Gen) {
		t.Fatal("expected current load signal to be applied")
	}
	if r.Loading() || r.Exhausted() {
		t.Errorf("expected displayed image, got loading=%v exhausted=%v", r.Loading(), r.Exhausted())
	}
	if r.Loaded(r.Current().Gen) {
		t.Error("second load signal should be a no-op")
	}
}

func TestTimedOut_CountsAsFailure(t *testing.T) {
	r := New([]string{"https://postimg.cc/x/y.png"}, "Top", fixedClock)
	r.TimedOut(r.Current().Gen)
	if r.State() != ShowingAlternate || r.Current().URL != "https://i.postimg.cc/x/y.png" {
		t.Errorf("unexpected state after timeout: %s %s", r.State(), r.Current().URL)
	}
}

func TestPlaceholder(t *testing.T) {
	tests := []struct {
		base  string
		label string
		want  string
	}{
		{"https://img.example/p", "Conjunto Lino", "https://img.example/p?text=Conjunto+Lino"},
		{"https://img.example/p?bg=fff", "Ñandú & Co", "https://img.example/p?bg=fff&text=%C3%91and%C3%BA+%26+Co"},
		{"", "  ", DefaultPlaceholderBase + "?text=Producto"},
	}

	for _, tt := range tests {
		if got := Placeholder(tt.base, tt.label); got != tt.want {
			t.Errorf("Placeholder(%q, %q) = %s, want %s", tt.base, tt.label, got, tt.want)
		}
	}
}
