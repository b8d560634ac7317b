// Package app wires components of seqmap from a profile.
//
// Both of CLI commands and the dashboard backend (`seqmap serve`) are built on App.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	prof "github.com/opst/seqmap/cmd/seqmap/config/profiles"
	"github.com/opst/seqmap/cmd/seqmap/rest"
	"github.com/opst/seqmap/pkg/domain"
	"github.com/opst/seqmap/pkg/export"
	"github.com/opst/seqmap/pkg/export/stores"
	"github.com/opst/seqmap/pkg/hook"
	"github.com/opst/seqmap/pkg/resolver"
	"github.com/opst/seqmap/pkg/seqcache"
	"github.com/opst/seqmap/pkg/tracker"
	"github.com/opst/seqmap/pkg/visualize"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	Profile *prof.Profile
	Client  rest.Client

	// reference dataset of the embedding model in the profile.
	Cache *seqcache.Cache

	// reference datasets for each embedding model.
	Caches *seqcache.Caches

	Resolver *resolver.Resolver
	Tracker  *tracker.Tracker
}

type config struct {
	logger     *log.Logger
	registerer prometheus.Registerer
	hooks      []hook.Hook[domain.StatusChange]
}

type Option func(*config) *config

func WithLogger(logger *log.Logger) Option {
	return func(c *config) *config {
		c.logger = logger
		return c
	}
}

// WithRegisterer registers tracker metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) *config {
		c.registerer = reg
		return c
	}
}

// WithHook adds a status change hook, in addition to web hooks in the profile.
func WithHook(h hook.Hook[domain.StatusChange]) Option {
	return func(c *config) *config {
		c.hooks = append(c.hooks, h)
		return c
	}
}

func New(p *prof.Profile, client rest.Client, options ...Option) (*App, error) {
	c := &config{logger: log.New(io.Discard, "", 0)}
	for _, opt := range options {
		c = opt(c)
	}

	caches := seqcache.NewCaches(client, p.EmbeddingModel)
	cacheFor := func(model string) resolver.Cache { return caches.For(model) }

	var strategy resolver.Strategy
	switch mode := p.Similarity.ModeOrDefault(); mode {
	case prof.SimilarityServer:
		strategy = resolver.Server(client, p.Similarity.Query())
	case prof.SimilarityLocal:
		strategy = resolver.Local(cacheFor, p.Similarity.Options())
	default:
		return nil, fmt.Errorf("%w: unknown similarity mode: %s", prof.ErrProfileInvalid, mode)
	}
	res := &resolver.Resolver{Projector: client, Strategy: strategy, Caches: cacheFor}

	hooks := hook.Multi[domain.StatusChange](c.hooks)
	if len(p.Hooks.StatusChange) != 0 {
		web, err := hook.Build[domain.StatusChange](p.Hooks.StatusChange)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", prof.ErrProfileInvalid, err)
		}
		hooks = append(hooks, web)
	}

	policy := p.Polling.Policy()
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("%w: polling: %w", prof.ErrProfileInvalid, err)
	}
	opts := []tracker.Option{
		tracker.WithPolicy(policy),
		tracker.WithTimeout(p.Polling.Timeout),
		tracker.WithCheckTimeout(p.Polling.CheckTimeout),
		tracker.WithLogger(c.logger),
		tracker.WithHook(hooks),
	}
	if c.registerer != nil {
		metrics, err := tracker.NewMetrics(c.registerer)
		if err != nil {
			return nil, err
		}
		opts = append(opts, tracker.WithMetrics(metrics))
	}

	return &App{
		Profile:  p,
		Client:   client,
		Cache:    caches.Default(),
		Caches:   caches,
		Resolver: res,
		Tracker:  tracker.New(client, res, opts...),
	}, nil
}

// ExportStore opens the export store configured in the profile.
//
// It returns stores.ErrDisabled when no export is configured.
func (a *App) ExportStore(ctx context.Context) (export.Store, error) {
	return stores.Open(ctx, a.Profile.Export.Config())
}

// Plot builds a plot of the result over the reference dataset of the model the result is from.
func (a *App) Plot(ctx context.Context, result domain.UserSequenceResult) (visualize.Plot, error) {
	refs, err := a.Caches.For(result.Model).Load(ctx, false)
	if err != nil {
		return visualize.Plot{}, err
	}
	return visualize.Build(result, refs), nil
}

// Follow polls the job until it finishes, and returns the plot of its result.
//
// # Errors
//
// - domain.ErrJobFailed: the job has failed.
//
// - tracker.ErrPollingTimeout
//
// - others: the result can not be resolved, or ctx is done.
func (a *App) Follow(ctx context.Context, jobId string) (visualize.Plot, error) {
	if err := a.Tracker.StartPolling(ctx, jobId); err != nil {
		return visualize.Plot{}, err
	}
	if _, err := a.Tracker.Wait(ctx, jobId); err != nil {
		return visualize.Plot{}, err
	}

	result, err := a.Tracker.Result(jobId)
	if err != nil {
		if errors.Is(err, domain.ErrIncompleteJob) {
			// the loop has been stopped before completion.
			if cerr := ctx.Err(); cerr != nil {
				return visualize.Plot{}, cerr
			}
		}
		return visualize.Plot{}, err
	}
	return a.Plot(ctx, result)
}
