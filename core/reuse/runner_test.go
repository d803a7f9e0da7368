// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package reuse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/core/store/memstore"
)

func waitForStatus(t *testing.T, job *Job, want Status) {
	t.Helper()

	require.Eventually(t, func() bool {
		return job.Progress().Status == want
	}, 5*time.Second, 5*time.Millisecond, "job never reached %s", want)
}

func TestRunnerFillsUntranslatedUnits(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour le monde")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")
	unmatched := f.addUnit(t, f.docA, "nothing like it", "", "", "")

	engine := editor.New(f.store, nil)
	runner := NewRunner(f.store, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	require.NoError(t, err)

	job, ok := runner.Job(jobID)
	require.True(t, ok)
	waitForStatus(t, job, StatusFinished)

	progress := job.Progress()
	assert.Equal(t, int64(2), progress.Total)
	assert.Equal(t, int64(2), progress.Processed)

	// The matched unit landed as Translated with the reused content.
	target, err := f.store.Target(ctx, subject.ID, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"bonjour le monde"}, target.Content)
	assert.Equal(t, catalog.StateTranslated, target.State)
	assert.Equal(t, 1, target.Version)
	assert.Equal(t, catalog.SourceCopyMatched, target.SourceType)
	assert.Equal(t, "copy-translation", target.LastModifiedBy)

	// The unmatched unit is untouched.
	_, err = f.store.Target(ctx, unmatched.ID, "fr")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRunnerRequireApprovedLandsApproved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateApproved, "bonjour approuvé")
	f.addUnit(t, f.docC, "hello world", "", catalog.StateTranslated, "bonjour traduit")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	engine := editor.New(f.store, nil)
	runner := NewRunner(f.store, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		RequireApproved: true,
		Locales:         []string{"fr"},
		DocumentID:      f.docA.ID,
	})
	require.NoError(t, err)

	job, _ := runner.Job(jobID)
	waitForStatus(t, job, StatusFinished)

	target, err := f.store.Target(ctx, subject.ID, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"bonjour approuvé"}, target.Content)
	assert.Equal(t, catalog.StateApproved, target.State)
}

func TestRunnerNeverDowngradesApproved(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour nouveau")
	subject := f.addUnit(t, f.docA, "hello world", "", catalog.StateApproved, "bonjour approuvé")

	engine := editor.New(f.store, nil)
	runner := NewRunner(f.store, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	require.NoError(t, err)

	job, _ := runner.Job(jobID)
	waitForStatus(t, job, StatusFinished)

	target, err := f.store.Target(ctx, subject.ID, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"bonjour approuvé"}, target.Content)
	assert.Equal(t, catalog.StateApproved, target.State)
	assert.Equal(t, 1, target.Version, "the protected target must not be rewritten")
}

func TestRunnerRejectsConcurrentJobForSameScope(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour")

	for range 40 {
		f.addUnit(t, f.docA, "hello world", "", "", "")
	}

	slow := &slowStore{Store: f.store, delay: 2 * time.Millisecond}
	engine := editor.New(slow, nil)
	runner := NewRunner(slow, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	require.NoError(t, err)

	_, err = runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	assert.ErrorIs(t, err, ErrNotAccepted)

	// A different project version is an independent scope.
	otherID, err := runner.StartForDocument(ctx, "other", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docC.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, jobID, otherID)

	job, _ := runner.Job(jobID)
	waitForStatus(t, job, StatusFinished)

	// Once finished, the scope is free again.
	_, err = runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	assert.NoError(t, err)
}

func TestRunnerCancellation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour")

	for range 200 {
		f.addUnit(t, f.docA, "hello world", "", "", "")
	}

	slow := &slowStore{Store: f.store, delay: 2 * time.Millisecond}
	engine := editor.New(slow, nil)
	runner := NewRunner(slow, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	require.NoError(t, err)

	job, _ := runner.Job(jobID)
	job.Cancel()

	waitForStatus(t, job, StatusCancelled)

	progress := job.Progress()
	assert.Less(t, progress.Processed, progress.Total, "cancellation stops before the scan completes")

	// Cancelling again is harmless, and the job stays queryable.
	job.Cancel()
	assert.Equal(t, StatusCancelled, job.Progress().Status)
}

func TestMatchSkippedWhenTargetEditedDuringScan(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	f.addUnit(t, f.docB, "hello world", "", catalog.StateTranslated, "bonjour")
	subject := f.addUnit(t, f.docA, "hello world", "", "", "")

	// A translator saves a manual edit after the job has captured its
	// version 0 view of the target but before the match is applied.
	racing := &racingStore{Store: f.store}
	racing.edit = func() {
		require.NoError(t, f.store.PersistTarget(ctx, &catalog.TranslationTarget{
			UnitID:         subject.ID,
			Locale:         "fr",
			Content:        []string{"manuel"},
			State:          catalog.StateTranslated,
			Version:        1,
			SourceType:     catalog.SourceManual,
			LastModifiedBy: "alice",
		}, 0))
	}

	engine := editor.New(racing, nil)
	runner := NewRunner(racing, engine)

	jobID, err := runner.StartForDocument(ctx, "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: f.docA.ID,
	})
	require.NoError(t, err)

	job, _ := runner.Job(jobID)
	waitForStatus(t, job, StatusFinished)

	// The lost match is a silent skip: the manual edit survives untouched.
	target, err := f.store.Target(ctx, subject.ID, "fr")
	require.NoError(t, err)
	assert.Equal(t, []string{"manuel"}, target.Content)
	assert.Equal(t, 1, target.Version)
	assert.Equal(t, catalog.SourceManual, target.SourceType)
	assert.Equal(t, "alice", target.LastModifiedBy)
}

func TestRunnerUnknownDocument(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	engine := editor.New(f.store, nil)
	runner := NewRunner(f.store, engine)

	_, err := runner.StartForDocument(context.Background(), "proj", "master", Options{
		Locales:    []string{"fr"},
		DocumentID: 999,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// racingStore runs edit once, just before the first candidate lookup,
// emulating a manual save racing the scan.
type racingStore struct {
	*memstore.Store

	once sync.Once
	edit func()
}

func (s *racingStore) CandidatesByHash(ctx context.Context, hash, locale string) ([]store.Candidate, error) {
	s.once.Do(s.edit)

	return s.Store.CandidatesByHash(ctx, hash, locale)
}

// slowStore delays target lookups so tests can observe running jobs.
type slowStore struct {
	*memstore.Store

	delay time.Duration
}

func (s *slowStore) Target(ctx context.Context, unitID int64, locale string) (*catalog.TranslationTarget, error) {
	time.Sleep(s.delay)

	return s.Store.Target(ctx, unitID, locale)
}
