// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package reuse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/store"
)

// Status is the lifecycle state of a copy-translation job.
type Status string

const (
	StatusRunning   Status = "Running"
	StatusFinished  Status = "Finished"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// ErrNotAccepted rejects a job before it starts because one is already
// running for the same project version.
var ErrNotAccepted = errors.New("reuse: copy-translation already running for this scope")

// copyTransActor applies matches on behalf of the server. It holds the
// review permission so that Approved-quality matches can land as Approved.
var copyTransActor = editor.Actor{
	Username:    "copy-translation",
	Permissions: map[string]bool{editor.PermissionTranslationReview: true},
}

// Options configures one copy-translation run.
type Options struct {
	// Scope flags restrict where matches may come from.
	Scope Scope

	// RequireApproved demands Approved-quality sources and writes matches
	// as Approved; otherwise Translated-quality sources qualify and matches
	// land as Translated. Driven by the project's review requirement.
	RequireApproved bool

	// Locales to fill. Every unit is scanned for every locale listed.
	Locales []string

	// DocumentID limits the run to one document; zero means every
	// non-obsolete document of the project version.
	DocumentID int64
}

// Progress is a point-in-time view of a job.
type Progress struct {
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Status    Status `json:"status"`
}

// Job is one running or finished copy-translation job. Processed increases
// monotonically; cancellation is advisory and observed at unit boundaries.
type Job struct {
	ID int64

	processed atomic.Int64
	total     atomic.Int64

	mu     sync.Mutex
	status Status

	cancel context.CancelFunc
}

// Progress returns the job's current counters and status.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	status := j.status
	j.mu.Unlock()

	return Progress{
		Processed: j.processed.Load(),
		Total:     j.total.Load(),
		Status:    status,
	}
}

// Cancel requests cooperative cancellation. Matches already applied stand;
// the job stops at the next unit boundary.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) setStatus(status Status) {
	j.mu.Lock()
	j.status = status
	j.mu.Unlock()
}

// Runner owns the copy-translation jobs of the server: at most one per
// project version at a time, all queryable until restart.
type Runner struct {
	store  store.Store
	engine *editor.Engine

	mu     sync.Mutex
	jobs   map[int64]*Job
	active map[string]int64 // scope -> running job id
	nextID int64
}

// NewRunner creates a runner applying matches through the given engine.
func NewRunner(st store.Store, engine *editor.Engine) *Runner {
	return &Runner{
		store:  st,
		engine: engine,
		jobs:   make(map[int64]*Job),
		active: make(map[string]int64),
	}
}

// StartForDocument launches a copy-translation job for a project version
// (optionally limited to one document via opts.DocumentID) and returns its
// id. It returns ErrNotAccepted while another job runs for the same scope.
//
// The job runs detached from the caller's context: triggering requests come
// and go, the job keeps running until done or cancelled.
func (r *Runner) StartForDocument(ctx context.Context, projectSlug, versionSlug string, opts Options) (int64, error) {
	docs, err := r.resolveDocuments(ctx, projectSlug, versionSlug, opts)
	if err != nil {
		return 0, err
	}

	scope := projectSlug + "/" + versionSlug

	r.mu.Lock()

	if _, running := r.active[scope]; running {
		r.mu.Unlock()

		return 0, ErrNotAccepted
	}

	jobCtx, cancel := context.WithCancel(context.Background())

	r.nextID++
	job := &Job{ID: r.nextID, status: StatusRunning, cancel: cancel}
	r.jobs[job.ID] = job
	r.active[scope] = job.ID

	r.mu.Unlock()

	log.Info().
		Int64("job_id", job.ID).
		Str("project", projectSlug).
		Str("version", versionSlug).
		Int("documents", len(docs)).
		Strs("locales", opts.Locales).
		Msg("Copy-translation job started")

	go r.run(jobCtx, job, scope, docs, opts)

	return job.ID, nil
}

// Job returns the job with the given id.
func (r *Runner) Job(id int64) (*Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]

	return job, ok
}

func (r *Runner) resolveDocuments(ctx context.Context, projectSlug, versionSlug string, opts Options) ([]*catalog.Document, error) {
	if opts.DocumentID != 0 {
		doc, err := r.store.Document(ctx, opts.DocumentID)
		if err != nil {
			return nil, err
		}

		return []*catalog.Document{doc}, nil
	}

	docs, err := r.store.DocumentsForVersion(ctx, projectSlug, versionSlug)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return nil, store.ErrNotFound
	}

	return docs, nil
}

// run executes the job. Locales are scanned concurrently; within a locale,
// units are processed sequentially so cancellation and the progress counter
// stay at unit granularity. Per-unit failures are skipped; only an
// unavailable store fails the whole job.
func (r *Runner) run(ctx context.Context, job *Job, scope string, docs []*catalog.Document, opts Options) {
	defer func() {
		r.mu.Lock()
		delete(r.active, scope)
		r.mu.Unlock()
	}()

	matcher := NewMatcher(r.store)

	type docUnits struct {
		doc   *catalog.Document
		units []*catalog.TranslationUnit
	}

	scan := make([]docUnits, 0, len(docs))

	for _, doc := range docs {
		units, err := r.store.UnitsForDocument(ctx, doc.ID)
		if err != nil {
			log.Err(err).Int64("job_id", job.ID).Int64("document_id", doc.ID).
				Msg("Copy-translation job failed listing units")
			job.setStatus(StatusFailed)

			return
		}

		scan = append(scan, docUnits{doc: doc, units: units})
		job.total.Add(int64(len(units) * len(opts.Locales)))
	}

	group, groupCtx := errgroup.WithContext(ctx)

	for _, locale := range opts.Locales {
		group.Go(func() error {
			for _, entry := range scan {
				for _, unit := range entry.units {
					// Cooperative cancellation, checked between units.
					if err := groupCtx.Err(); err != nil {
						return err
					}

					if err := r.processUnit(groupCtx, matcher, entry.doc, unit, locale, opts); err != nil {
						return err
					}

					job.processed.Add(1)
				}
			}

			return nil
		})
	}

	err := group.Wait()

	switch {
	case err == nil:
		job.setStatus(StatusFinished)
		log.Info().Int64("job_id", job.ID).Int64("processed", job.processed.Load()).
			Msg("Copy-translation job finished")
	case errors.Is(err, context.Canceled):
		// Partially-applied matches remain valid results.
		job.setStatus(StatusCancelled)
		log.Info().Int64("job_id", job.ID).Int64("processed", job.processed.Load()).
			Msg("Copy-translation job cancelled")
	default:
		job.setStatus(StatusFailed)
		log.Err(err).Int64("job_id", job.ID).Msg("Copy-translation job failed")
	}
}

// processUnit finds and applies at most one match for (unit, locale).
//
// Skips are silent successes from the job's point of view: no candidate, a
// protected Approved target, or a match-apply conflict all leave the unit
// untouched and the job moving. Only store failures propagate.
func (r *Runner) processUnit(
	ctx context.Context,
	matcher *Matcher,
	doc *catalog.Document,
	unit *catalog.TranslationUnit,
	locale string,
	opts Options,
) error {
	current, err := r.store.Target(ctx, unit.ID, locale)
	if errors.Is(err, store.ErrNotFound) {
		current = &catalog.TranslationTarget{UnitID: unit.ID, Locale: locale, State: catalog.StateNew}
	} else if err != nil {
		return fmt.Errorf("lookup target %d/%s: %w", unit.ID, locale, err)
	}

	finalState := catalog.StateTranslated
	if opts.RequireApproved {
		finalState = catalog.StateApproved
	}

	// Never overwrite an Approved target unless the match itself lands as
	// Approved.
	if current.State == catalog.StateApproved && finalState != catalog.StateApproved {
		return nil
	}

	candidate, err := matcher.FindMatch(ctx, unit, doc, locale, opts.Scope, opts.RequireApproved)
	if err != nil {
		return fmt.Errorf("find match for unit %d: %w", unit.ID, err)
	}

	if candidate == nil {
		return nil
	}

	results := r.engine.Apply(ctx, locale, copyTransActor, []editor.ItemRequest{{
		UnitID:      unit.ID,
		Content:     candidate.Target.Content,
		BaseVersion: current.Version,
		State:       finalState,
		SourceType:  catalog.SourceCopyMatched,
	}})

	if result := results[0]; !result.Success {
		if result.ErrorKind == editor.KindInternal {
			return fmt.Errorf("apply match for unit %d/%s: %s", unit.ID, locale, result.ErrorKind)
		}

		// The target changed between selection and apply, or the transition
		// was not allowed. Log and move on; the manual edit wins.
		log.Debug().
			Int64("unit_id", unit.ID).
			Str("locale", locale).
			Str("error_kind", string(result.ErrorKind)).
			Msg("Copy-translation match skipped")
	}

	return nil
}
