package imageresolve

import (
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultLoadTimeout bounds how long a single attempt may stay in flight
// before it is treated as a failure.
const DefaultLoadTimeout = 15 * time.Second

// DefaultPlaceholderBase is used when no placeholder base is configured
const DefaultPlaceholderBase = "https://via.placeholder.com/400x600/f5f5f5/666666"

var ErrIndexOutOfRange = errors.New("image index out of range")

// State is the position of a candidate in the fallback sequence.
// Transitions only move forward: Loading -> ShowingAlternate -> RetryingOriginal -> Exhausted,
// with ShowingAlternate skipped when no mirror can be derived.
type State int

const (
	Loading State = iota
	ShowingAlternate
	RetryingOriginal
	Exhausted
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case ShowingAlternate:
		return "showing_alternate"
	case RetryingOriginal:
		return "retrying_original"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Attempt is the source to try now. Gen identifies the attempt so that
// signals for superseded attempts can be discarded.
type Attempt struct {
	Gen   uint64
	URL   string
	State State
}

// Option configures a Resolver
type Option func(*Resolver)

// WithPlaceholderBase sets the base URL of generated placeholders
func WithPlaceholderBase(base string) Option {
	return func(r *Resolver) {
		if base != "" {
			r.placeholderBase = base
		}
	}
}

// WithClock replaces the clock used for cache-busting suffixes
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithMirrors replaces the host mirror table
func WithMirrors(mirrors map[string]string) Option {
	return func(r *Resolver) {
		r.mirrors = mirrors
	}
}

// Resolver tracks image resolution for one rendered product.
// It is not safe for concurrent use; each render owns its own Resolver.
type Resolver struct {
	candidates      []string
	label           string
	placeholderBase string
	mirrors         map[string]string
	now             func() time.Time

	index    int
	state    State
	loading  bool
	attempts int
	gen      uint64
	source   string
}

// New creates a resolver for the given candidate URLs. Blank candidates are
// skipped. label is the human readable name used for the placeholder.
func New(candidates []string, label string, opts ...Option) *Resolver {
	r := &Resolver{
		label:           label,
		placeholderBase: DefaultPlaceholderBase,
		mirrors:         DefaultMirrors(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			r.candidates = append(r.candidates, c)
		}
	}
	r.reset()
	return r
}

func (r *Resolver) reset() {
	r.gen++
	r.attempts = 0
	if len(r.candidates) == 0 {
		r.exhaust()
		return
	}
	r.state = Loading
	r.loading = true
	r.source = r.candidates[r.index]
	r.attempts = 1
}

func (r *Resolver) exhaust() {
	r.state = Exhausted
	r.loading = false
	r.source = Placeholder(r.placeholderBase, r.label)
}

// Select navigates to another candidate and restarts its fallback sequence
func (r *Resolver) Select(index int) error {
	// an empty resolver still has slot 0, the placeholder
	if index < 0 || index >= max(len(r.candidates), 1) {
		return ErrIndexOutOfRange
	}
	r.index = index
	r.reset()
	return nil
}

// Current returns the source that should be displayed or fetched now
func (r *Resolver) Current() Attempt {
	return Attempt{Gen: r.gen, URL: r.source, State: r.state}
}

func (r *Resolver) State() State    { return r.state }
func (r *Resolver) Loading() bool   { return r.loading }
func (r *Resolver) Exhausted() bool { return r.state == Exhausted }
func (r *Resolver) Attempts() int   { return r.attempts }
func (r *Resolver) Index() int      { return r.index }
func (r *Resolver) Len() int        { return len(r.candidates) }

// Loaded records a successful load of the attempt with generation gen
func (r *Resolver) Loaded(gen uint64) bool {
	if gen != r.gen || !r.loading {
		return false
	}
	r.loading = false
	return true
}

// TimedOut treats an attempt that produced no signal in time as failed
func (r *Resolver) TimedOut(gen uint64) bool {
	return r.Failed(gen)
}

// Failed advances the fallback sequence after the attempt with generation gen
// failed. It returns false when the signal was stale and therefore ignored.
func (r *Resolver) Failed(gen uint64) bool {
	if gen != r.gen || r.state == Exhausted {
		return false
	}

	original := r.candidates[r.index]
	switch r.state {
	case Loading:
		if alt, ok := r.alternate(original); ok {
			r.advance(ShowingAlternate, alt)
			return true
		}
		r.advance(RetryingOriginal, r.cacheBust(original))
	case ShowingAlternate:
		r.advance(RetryingOriginal, r.cacheBust(original))
	case RetryingOriginal:
		r.gen++
		r.exhaust()
	}
	return true
}

func (r *Resolver) advance(next State, source string) {
	r.gen++
	r.state = next
	r.source = source
	r.loading = true
	r.attempts++
}

func (r *Resolver) alternate(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}
	mirror, ok := r.mirrors[strings.ToLower(u.Host)]
	if !ok {
		return "", false
	}
	u.Host = mirror
	alt := u.String()
	return alt, alt != raw
}

func (r *Resolver) cacheBust(raw string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + "t=" + strconv.FormatInt(r.now().UnixMilli(), 10)
}

// DefaultMirrors lists image hosts that serve the same path from a sibling host
func DefaultMirrors() map[string]string {
	return map[string]string{
		"postimg.cc":   "i.postimg.cc",
		"i.postimg.cc": "postimg.cc",
		"ibb.co":       "i.ibb.co",
		"i.ibb.co":     "ibb.co",
	}
}

// Placeholder builds a deterministic placeholder URL carrying label as its text
func Placeholder(base, label string) string {
	if base == "" {
		base = DefaultPlaceholderBase
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Producto"
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "text=" + url.QueryEscape(label)
}
