// Tunegraph - Music Taste Matching and Community Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tunegraph

package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tunegraph/internal/community"
	"github.com/tomtom215/tunegraph/internal/graph"
	"github.com/tomtom215/tunegraph/internal/logging"
	"github.com/tomtom215/tunegraph/internal/metrics"
	"github.com/tomtom215/tunegraph/internal/models"
	"github.com/tomtom215/tunegraph/internal/similarity"
)

// ErrBatchInProgress is returned when a run is requested while another is active.
var ErrBatchInProgress = errors.New("batch run already in progress")

// ErrInvalidRequest is returned for requests that cannot be run.
var ErrInvalidRequest = errors.New("invalid batch request")

// MinUsers is the smallest user count a run computes anything for.
const MinUsers = 2

// Options configures an Orchestrator.
type Options struct {
	// Threshold is the minimum combined similarity for a graph edge (inclusive).
	Threshold float64

	// Resolution and Seed configure community detection.
	Resolution float64
	Seed       int64

	// Timeout bounds a single run. Zero means no limit beyond the caller's context.
	Timeout time.Duration
}

// Orchestrator runs batch jobs against a Store. At most one run is active at
// a time; a second request fails fast with ErrBatchInProgress.
type Orchestrator struct {
	store    Store
	opts     Options
	detector *community.Detector
	logger   zerolog.Logger

	runMu sync.Mutex
	group singleflight.Group

	lastMu sync.RWMutex
	last   *Result
}

// New creates an orchestrator.
//
//nolint:gocritic // Options passed by value is intentional, it is copied once
func New(store Store, opts Options) *Orchestrator {
	return &Orchestrator{
		store:    store,
		opts:     opts,
		detector: community.NewDetector(opts.Resolution, opts.Seed),
		logger:   logging.WithComponent("batch"),
	}
}

// RunFull runs a full batch. Concurrent callers share a single run and its
// result. The shared run is detached from any one caller's cancellation and
// bounded by Options.Timeout instead.
func (o *Orchestrator) RunFull(ctx context.Context) (*Result, error) {
	v, err, shared := o.group.Do(string(ModeFull), func() (interface{}, error) {
		return o.Run(context.WithoutCancel(ctx), Request{Mode: ModeFull})
	})
	if shared {
		o.logger.Debug().Msg("Joined in-flight full batch run")
	}
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Run executes one batch run. Skips (fewer than MinUsers users, or an
// incremental target with no attribute data) are not errors: they return a
// Result with StatusSkipped after rolling back. Any failure rolls back every
// write of the run.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if !o.runMu.TryLock() {
		metrics.RecordBatchRun(metrics.BatchOutcome{Mode: string(req.Mode), Status: "rejected"})
		return nil, ErrBatchInProgress
	}
	defer o.runMu.Unlock()

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	log := o.logger.With().
		Str("mode", string(req.Mode)).
		Str("correlation_id", logging.CorrelationIDFromContext(ctx)).
		Logger()
	if req.UserID != "" {
		log = log.With().Str("user_id", req.UserID).Logger()
	}

	start := time.Now()
	log.Info().Msg("Batch run started")

	result, err := o.execute(ctx, req, log)
	duration := time.Since(start)

	if err != nil {
		metrics.RecordBatchRun(metrics.BatchOutcome{Mode: string(req.Mode), Status: "failed", Duration: duration})
		log.Error().Err(err).Int64("duration_ms", duration.Milliseconds()).Msg("Batch run failed")
		return nil, err
	}

	result.Duration = duration
	result.DurationMS = duration.Milliseconds()
	result.StartedAt = start.UTC()

	metrics.RecordBatchRun(metrics.BatchOutcome{
		Mode:        string(result.Mode),
		Status:      string(result.Status),
		Users:       result.Users,
		Pairs:       result.Pairs,
		Edges:       result.Edges,
		Communities: result.Communities,
		Duration:    duration,
	})

	if result.Status == StatusSkipped {
		log.Info().Str("reason", result.Reason).Int("users", result.Users).Msg("Batch run skipped")
	} else {
		log.Info().
			Int("users", result.Users).
			Int("pairs", result.Pairs).
			Int("edges", result.Edges).
			Int("communities", result.Communities).
			Int64("duration_ms", result.DurationMS).
			Msg("Batch run completed")
	}

	o.lastMu.Lock()
	o.last = result
	o.lastMu.Unlock()

	return result, nil
}

// LastResult returns the most recent successful (completed or skipped) run.
func (o *Orchestrator) LastResult() (Result, bool) {
	o.lastMu.RLock()
	defer o.lastMu.RUnlock()
	if o.last == nil {
		return Result{}, false
	}
	return *o.last, true
}

// execute performs the run inside one transaction. The transaction is rolled
// back unless every stage succeeds and the commit lands.
//
//nolint:gocritic // zerolog.Logger passed by value is acceptable
func (o *Orchestrator) execute(ctx context.Context, req Request, log zerolog.Logger) (result *Result, err error) {
	tx, err := o.store.BeginBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).AnErr("original_error", err).Msg("Batch rollback failed")
		}
	}()

	stage := time.Now()
	snap, err := tx.LoadUserAttributes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user attributes: %w", err)
	}
	metrics.RecordBatchStage("load", time.Since(stage))

	users := len(snap.Order)
	if users < MinUsers {
		return skipped(req.Mode, users, fmt.Sprintf("need at least %d users", MinUsers)), nil
	}

	var (
		records   []models.SimilarityRecord
		graphSims []models.SimilarityRecord
	)

	switch req.Mode {
	case ModeFull:
		stage = time.Now()
		records = similarity.Full(snap)
		metrics.RecordBatchStage("similarity", time.Since(stage))

		stage = time.Now()
		if err = tx.ReplaceSimilarities(ctx, records); err != nil {
			return nil, fmt.Errorf("write similarities: %w", err)
		}
		metrics.RecordBatchStage("write", time.Since(stage))
		graphSims = records

	case ModeIncremental:
		stage = time.Now()
		records, err = similarity.Incremental(snap, req.UserID)
		if errors.Is(err, similarity.ErrUnknownUser) {
			return skipped(req.Mode, users, "user has no attribute data"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("compute similarities: %w", err)
		}
		metrics.RecordBatchStage("similarity", time.Since(stage))

		stage = time.Now()
		if err = tx.UpsertSimilarities(ctx, records); err != nil {
			return nil, fmt.Errorf("upsert similarities: %w", err)
		}
		// The graph covers the whole merged matrix, not just this user's row.
		var all []models.SimilarityRecord
		if all, err = tx.LoadSimilarities(ctx); err != nil {
			return nil, fmt.Errorf("load similarities: %w", err)
		}
		graphSims = knownPairs(all, snap)
		metrics.RecordBatchStage("write", time.Since(stage))
	}

	stage = time.Now()
	g := graph.Build(snap.Order, graphSims, o.opts.Threshold)
	metrics.RecordBatchStage("graph", time.Since(stage))
	log.Debug().Int("nodes", g.NodeCount()).Int("edges", g.EdgeCount()).Msg("Similarity graph built")

	communities := 0
	stage = time.Now()
	if g.EdgeCount() == 0 {
		if err = tx.ClearCommunities(ctx); err != nil {
			return nil, fmt.Errorf("clear communities: %w", err)
		}
	} else {
		assignments := o.detector.Detect(g)
		if err = tx.ReplaceCommunities(ctx, assignments); err != nil {
			return nil, fmt.Errorf("write communities: %w", err)
		}
		communities = community.CountCommunities(assignments)
	}
	metrics.RecordBatchStage("community", time.Since(stage))

	stage = time.Now()
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	committed = true
	metrics.RecordBatchStage("commit", time.Since(stage))

	return &Result{
		Status:      StatusCompleted,
		Mode:        req.Mode,
		Users:       users,
		Pairs:       len(records),
		Edges:       g.EdgeCount(),
		Communities: communities,
	}, nil
}

// knownPairs drops stored pairs that reference users absent from snap, such as
// users whose followed artists were all removed since the pair was computed.
func knownPairs(sims []models.SimilarityRecord, snap *models.AttributeSnapshot) []models.SimilarityRecord {
	out := sims[:0]
	for _, s := range sims {
		_, okA := snap.Users[s.UserA]
		_, okB := snap.Users[s.UserB]
		if okA && okB {
			out = append(out, s)
		}
	}
	return out
}

func skipped(mode Mode, users int, reason string) *Result {
	return &Result{Status: StatusSkipped, Mode: mode, Users: users, Reason: reason}
}
