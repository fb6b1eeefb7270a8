package imageresolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// MaxImageBytes caps a streamed image body
const MaxImageBytes = 10 << 20

var (
	ErrLoadTimeout        = errors.New("image load timed out")
	ErrNotImage           = errors.New("response is not an image")
	ErrBadStatus          = errors.New("unexpected image response status")
	ErrTooLarge           = errors.New("image exceeds size limit")
	ErrStreamUnsupported  = errors.New("image source cannot be streamed")
	ErrPlaceholderOffline = errors.New("placeholder image unavailable")
)

// Prober fetches a source and reports whether it is displayable
type Prober interface {
	Probe(ctx context.Context, source string) error
}

// HTTPProber probes image URLs over HTTP with a per-attempt deadline
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober. A zero timeout uses DefaultLoadTimeout.
func NewHTTPProber(client *http.Client, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &HTTPProber{client: client, timeout: timeout}
}

// Image is an open image body. The caller must close Body.
type Image struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// Fetcher opens a source for streaming
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*Image, error)
}

// get returns a 2xx image response. cancel releases the attempt deadline
// and must be called once the body is done with.
func (p *HTTPProber) get(ctx context.Context, source string) (*http.Response, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := p.client.Do(req)
	if err != nil {
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()
		if timedOut {
			return nil, nil, ErrLoadTimeout
		}
		return nil, nil, fmt.Errorf("failed to fetch image: %w", err)
	}

	fail := func(err error) (*http.Response, context.CancelFunc, error) {
		// drain a little so keep-alive connections can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		cancel()
		return nil, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode))
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return fail(ErrNotImage)
	}
	return resp, cancel, nil
}

// Probe issues a GET and accepts only 2xx responses with an image content type
func (p *HTTPProber) Probe(ctx context.Context, source string) error {
	resp, cancel, err := p.get(ctx, source)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return nil
}

// Fetch opens source like Probe but hands the body to the caller. The attempt
// deadline covers the whole transfer and ends when Body is closed.
func (p *HTTPProber) Fetch(ctx context.Context, source string) (*Image, error) {
	resp, cancel, err := p.get(ctx, source)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength > MaxImageBytes {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	return &Image{
		Body: &cancelBody{
			Reader: io.LimitReader(resp.Body, MaxImageBytes),
			body:   resp.Body,
			cancel: cancel,
		},
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}

type cancelBody struct {
	io.Reader
	body   io.Closer
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.body.Close()
	b.cancel()
	return err
}

// Result is the outcome of driving a resolver to a terminal state
type Result struct {
	Source    string `json:"source"`
	Exhausted bool   `json:"exhausted"`
	Attempts  int    `json:"attempts"`
	State     string `json:"state"`
}

// Service resolves product images server side
type Service struct {
	prober Prober
	logger *zap.Logger
	opts   []Option
}

func NewService(prober Prober, logger *zap.Logger, opts ...Option) *Service {
	return &Service{prober: prober, logger: logger, opts: opts}
}

// Resolve picks the candidate at index and walks the fallback sequence until
// a source loads or the placeholder is reached. The returned source is never empty.
func (s *Service) Resolve(ctx context.Context, candidates []string, label string, index int) (Result, error) {
	r, err := s.walk(ctx, candidates, label, index, s.prober.Probe)
	if err != nil {
		return Result{}, err
	}
	return resultOf(r), nil
}

// Open walks the same fallback sequence as Resolve but keeps the body of the
// source that loaded, so the image can be streamed to a client that cannot
// reach the host itself. When every candidate fails the placeholder is fetched.
func (s *Service) Open(ctx context.Context, candidates []string, label string, index int) (*Image, Result, error) {
	fetcher, ok := s.prober.(Fetcher)
	if !ok {
		return nil, Result{}, ErrStreamUnsupported
	}

	var img *Image
	r, err := s.walk(ctx, candidates, label, index, func(ctx context.Context, source string) error {
		opened, err := fetcher.Fetch(ctx, source)
		if err == nil {
			img = opened
		}
		return err
	})
	if err != nil {
		return nil, Result{}, err
	}

	if img == nil {
		img, err = fetcher.Fetch(ctx, r.Current().URL)
		if err != nil {
			return nil, Result{}, fmt.Errorf("%w: %w", ErrPlaceholderOffline, err)
		}
	}
	return img, resultOf(r), nil
}

func (s *Service) walk(ctx context.Context, candidates []string, label string, index int, try func(context.Context, string) error) (*Resolver, error) {
	r := New(candidates, label, s.opts...)
	if err := r.Select(index); err != nil {
		return nil, err
	}

	for !r.Exhausted() {
		attempt := r.Current()
		err := try(ctx, attempt.URL)
		if err == nil {
			r.Loaded(attempt.Gen)
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		s.logger.Debug("Image attempt failed",
			zap.String("url", attempt.URL),
			zap.String("state", attempt.State.String()),
			zap.Error(err),
		)
		if errors.Is(err, ErrLoadTimeout) {
			r.TimedOut(attempt.Gen)
		} else {
			r.Failed(attempt.Gen)
		}
	}

	if r.Exhausted() {
		s.logger.Info("Image candidates exhausted, using placeholder",
			zap.String("label", label),
			zap.Int("index", index),
			zap.Int("attempts", r.Attempts()),
		)
	}
	return r, nil
}

func resultOf(r *Resolver) Result {
	current := r.Current()
	return Result{
		Source:    current.URL,
		Exhausted: r.Exhausted(),
		Attempts:  r.Attempts(),
		State:     current.State.String(),
	}
}
