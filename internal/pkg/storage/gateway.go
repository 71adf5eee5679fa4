package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/callsense/callsense/internal/pkg/utils"
	"github.com/rs/zerolog/log"
)

// ObjectLoader loads a stored object by name
type ObjectLoader interface {
	LoadFile(ctx context.Context, name string) ([]byte, error)
}

// Gateway resolves an audio reference to raw bytes.
// A reference with the local prefix is read straight from disk.
// Any other reference goes through an ordered strategy list:
// managed object store first, then a plain GET treating the
// reference as URL. First success wins, the last error surfaces.
type Gateway struct {
	localPrefix string
	localRoot   string
	strategies  []strategy
}

type strategy interface {
	Name() string
	Fetch(ctx context.Context, reference string) ([]byte, error)
}

// Options configures the gateway
type Options struct {
	LocalPrefix string
	LocalRoot   string
	Loader      ObjectLoader
	HTTPClient  *http.Client
}

// NewGateway builds the retrieval chain
func NewGateway(opts Options) (*Gateway, error) {
	if opts.LocalPrefix == "" {
		opts.LocalPrefix = "local/"
	}
	res := &Gateway{localPrefix: opts.LocalPrefix, localRoot: opts.LocalRoot}
	if opts.Loader != nil {
		res.strategies = append(res.strategies, &objectStrategy{loader: opts.Loader})
	}
	cl := opts.HTTPClient
	if cl == nil {
		cl = &http.Client{Timeout: time.Minute * 2}
	}
	res.strategies = append(res.strategies, &urlStrategy{httpclient: cl})
	return res, nil
}

// Fetch returns the audio bytes for the reference
func (g *Gateway) Fetch(ctx context.Context, reference string) ([]byte, error) {
	if reference == "" {
		return nil, fmt.Errorf("no reference")
	}
	if strings.HasPrefix(reference, g.localPrefix) {
		return g.fetchLocal(reference)
	}
	var lastErr error
	for _, s := range g.strategies {
		res, err := s.Fetch(ctx, reference)
		if err == nil {
			return res, nil
		}
		log.Warn().Err(err).Str("strategy", s.Name()).Str("reference", reference).Msg("fetch failed")
		lastErr = err
	}
	return nil, fmt.Errorf("can't fetch '%s': %w", reference, lastErr)
}

func (g *Gateway) fetchLocal(reference string) ([]byte, error) {
	name := filepath.Join(g.localRoot, filepath.Clean(strings.TrimPrefix(reference, g.localPrefix)))
	res, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("can't read '%s': %w", name, err)
	}
	return res, nil
}

type objectStrategy struct {
	loader ObjectLoader
}

func (s *objectStrategy) Name() string {
	return "object-store"
}

func (s *objectStrategy) Fetch(ctx context.Context, reference string) ([]byte, error) {
	return s.loader.LoadFile(ctx, reference)
}

type urlStrategy struct {
	httpclient *http.Client
}

func (s *urlStrategy) Name() string {
	return "url"
}

func (s *urlStrategy) Fetch(ctx context.Context, reference string) ([]byte, error) {
	u, err := url.ParseRequestURI(reference)
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("not an URL: '%s'", reference)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reference, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := utils.ValidateResponse(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", reference, err)
	}
	res, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("can't read body: %w", err)
	}
	return res, nil
}
