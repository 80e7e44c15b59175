package depsolver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Future is a handle to an in-flight content-service query. It is produced
// immediately (the query has already started on its own goroutine) and
// resolved by Await, which blocks until the goroutine finishes. This mirrors
// the teacher's closure-over-channel futures (deduce.go's stringFuture /
// sourceFuture) generalized with Go generics instead of one bespoke type per
// return shape.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func newFuture[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// NewFuture is the exported form of newFuture, for ContentClient
// implementations outside this package (fixtureclient and any production
// content-service client) that want the same kickoff-on-construction shape
// the core itself uses.
func NewFuture[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	return newFuture(ctx, fn)
}

// Await blocks until the query completes or ctx is cancelled, whichever
// comes first. A context cancellation while the underlying query is still
// running does not stop that goroutine (the content client owns that); it
// only stops this caller from waiting on it further.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ContentClient is the interface the core consumes (§4.2). Implementations
// are free to choose their own transport, batching, and worker-pool shape;
// the core only requires that each call returns promptly with a Future
// whose completion is visible to the single driving goroutine.
type ContentClient interface {
	// UnitsByName returns all units in repo whose Name is in names.
	UnitsByName(ctx context.Context, repo Repo, names map[string]struct{}) *Future[[]Unit]
	// UnitsProviding returns all units in repo whose Provides contains any
	// atom in atoms, matched by name.
	UnitsProviding(ctx context.Context, repo Repo, atoms []Atom) *Future[[]Unit]
	// Modulemds returns all modulemd units in repo.
	Modulemds(ctx context.Context, repo Repo) *Future[[]ModulemdUnit]
}

// tracingClient decorates a ContentClient with structured, per-call logging:
// a UUID correlates the kickoff and completion log lines for one query, and
// the elapsed time is recorded. This is the ambient observability the
// teacher gives VCS operations in bridge.go/source_manager.go, adapted to
// the content-service boundary named in §4.2.
type tracingClient struct {
	inner ContentClient
	log   *zap.Logger
}

// NewTracingClient wraps inner so that every query is logged with a
// correlation id, mirroring how production content-service clients are
// expected to be observable without the core needing to know about it.
func NewTracingClient(inner ContentClient, log *zap.Logger) ContentClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &tracingClient{inner: inner, log: log}
}

func (c *tracingClient) UnitsByName(ctx context.Context, repo Repo, names map[string]struct{}) *Future[[]Unit] {
	id := uuid.New()
	start := time.Now()
	c.log.Debug("units_by_name started", zap.String("query_id", id.String()), zap.String("repo", repo.ID), zap.Int("names", len(names)))
	inner := c.inner.UnitsByName(ctx, repo, names)
	return newFuture(ctx, func(ctx context.Context) ([]Unit, error) {
		units, err := inner.Await(ctx)
		c.log.Debug("units_by_name finished", zap.String("query_id", id.String()), zap.Duration("elapsed", time.Since(start)), zap.Int("units", len(units)), zap.Error(err))
		return units, err
	})
}

func (c *tracingClient) UnitsProviding(ctx context.Context, repo Repo, atoms []Atom) *Future[[]Unit] {
	id := uuid.New()
	start := time.Now()
	c.log.Debug("units_providing started", zap.String("query_id", id.String()), zap.String("repo", repo.ID), zap.Int("atoms", len(atoms)))
	inner := c.inner.UnitsProviding(ctx, repo, atoms)
	return newFuture(ctx, func(ctx context.Context) ([]Unit, error) {
		units, err := inner.Await(ctx)
		c.log.Debug("units_providing finished", zap.String("query_id", id.String()), zap.Duration("elapsed", time.Since(start)), zap.Int("units", len(units)), zap.Error(err))
		return units, err
	})
}

func (c *tracingClient) Modulemds(ctx context.Context, repo Repo) *Future[[]ModulemdUnit] {
	id := uuid.New()
	start := time.Now()
	c.log.Debug("modulemds started", zap.String("query_id", id.String()), zap.String("repo", repo.ID))
	inner := c.inner.Modulemds(ctx, repo)
	return newFuture(ctx, func(ctx context.Context) ([]ModulemdUnit, error) {
		mds, err := inner.Await(ctx)
		c.log.Debug("modulemds finished", zap.String("query_id", id.String()), zap.Duration("elapsed", time.Since(start)), zap.Int("modulemds", len(mds)), zap.Error(err))
		return mds, err
	})
}

// repoResult pairs a per-repo query outcome with the repo it came from, used
// by the fan-out helpers below to attribute failures back to a repo id for
// diagnostics.
type repoResult struct {
	repo  Repo
	units []Unit
	err   error
}

// fanOutUnitsProviding issues UnitsProviding against every repo in repos in
// parallel and joins the results. A query failure against one repo is
// recorded on its repoResult rather than aborting the others — per §7,
// QueryFailure is reclassified as "not found" for the affected atoms, not
// propagated as a fatal error.
func fanOutUnitsProviding(ctx context.Context, client ContentClient, repos []Repo, atoms []Atom) []repoResult {
	futures := make([]*Future[[]Unit], len(repos))
	for i, repo := range repos {
		futures[i] = client.UnitsProviding(ctx, repo, atoms)
	}
	results := make([]repoResult, len(repos))
	var eg errgroup.Group
	for i := range repos {
		i := i
		eg.Go(func() error {
			units, err := futures[i].Await(ctx)
			results[i] = repoResult{repo: repos[i], units: units, err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// fanOutUnitsByName is the get_base_packages/source-resolution analogue of
// fanOutUnitsProviding.
func fanOutUnitsByName(ctx context.Context, client ContentClient, repos []Repo, names map[string]struct{}) []repoResult {
	futures := make([]*Future[[]Unit], len(repos))
	for i, repo := range repos {
		futures[i] = client.UnitsByName(ctx, repo, names)
	}
	results := make([]repoResult, len(repos))
	var eg errgroup.Group
	for i := range repos {
		i := i
		eg.Go(func() error {
			units, err := futures[i].Await(ctx)
			results[i] = repoResult{repo: repos[i], units: units, err: err}
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
