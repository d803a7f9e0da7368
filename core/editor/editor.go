// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package editor implements the version-checked update engine.

Every mutation of a translation target flows through Engine.Apply: manual
edits, REST imports, copy-translation matches and reverts. Each item in a
batch is processed independently against the optimistic concurrency
protocol; one item's failure never rolls back its siblings. Accepted
mutations increment the target version by exactly one and raise a
unit-updated event for the workspace broadcast service.
*/
package editor

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/core/workspace"
)

// ErrorKind is the caller-visible classification of a failed batch item.
type ErrorKind string

const (
	// KindConcurrentModification reports a failed version check; the caller
	// re-fetches and retries, the server never retries on its own.
	KindConcurrentModification ErrorKind = "ConcurrentModification"

	// KindUnauthorized reports a missing permission for the requested state
	// transition. Checked independently of version correctness.
	KindUnauthorized ErrorKind = "Unauthorized"

	// KindNotFound reports an unknown translation unit.
	KindNotFound ErrorKind = "NotFound"

	// KindInvalidTransition reports a state move the lifecycle machine does
	// not allow.
	KindInvalidTransition ErrorKind = "InvalidStateTransition"

	// KindInternal reports a storage failure unrelated to the optimistic
	// protocol. The item may be retried unchanged once the store recovers.
	KindInternal ErrorKind = "InternalError"
)

// PermissionTranslationReview gates moves into and out of Approved.
const PermissionTranslationReview = "translation-review"

// Actor is the identity performing a batch, passed explicitly rather than
// read from ambient session state so the engine stays unit-testable.
type Actor struct {
	Username    string
	SessionID   string
	Permissions map[string]bool
}

// Can reports whether the actor holds the named permission.
func (a Actor) Can(permission string) bool {
	return a.Permissions[permission]
}

// ItemRequest is one proposed target update within a batch.
type ItemRequest struct {
	UnitID      int64                `json:"unitId"`
	Content     []string             `json:"content"`
	BaseVersion int                  `json:"baseVersion"`
	State       catalog.ContentState `json:"state"`
	SourceType  catalog.SourceType   `json:"sourceType"`
}

// ItemResult reports the outcome of one batch item, in input order.
type ItemResult struct {
	Success    bool                       `json:"success"`
	ErrorKind  ErrorKind                  `json:"errorKind,omitempty"`
	OldVersion int                        `json:"oldVersion"`
	OldState   catalog.ContentState       `json:"oldState"`
	NewVersion int                        `json:"newVersion,omitempty"`
	NewState   catalog.ContentState       `json:"newState,omitempty"`
	Target     *catalog.TranslationTarget `json:"target,omitempty"`
}

// RevertItem describes one prior update outcome to compensate for.
type RevertItem struct {
	UnitID                  int64                `json:"unitId"`
	PriorContent            []string             `json:"priorContent"`
	PriorVersionAfterUpdate int                  `json:"priorVersionAfterUpdate"`
	StateBeforeThatUpdate   catalog.ContentState `json:"stateBeforeThatUpdate"`
}

// Publisher is where accepted mutations are announced. The workspace
// registry implements it; tests may pass nil to skip broadcasting.
type Publisher interface {
	Publish(key workspace.Key, event workspace.Event)
}

// Engine is the version-checked update engine. Construct with New.
type Engine struct {
	store     store.Store
	publisher Publisher
	timeNow   func() time.Time
}

// New creates an engine over the given store. publisher may be nil.
func New(st store.Store, publisher Publisher) *Engine {
	return &Engine{
		store:     st,
		publisher: publisher,
		timeNow:   time.Now,
	}
}

// Apply processes the batch item by item. The result slice preserves input
// order and always has the same length as items.
func (e *Engine) Apply(ctx context.Context, locale string, actor Actor, items []ItemRequest) []ItemResult {
	results := make([]ItemResult, len(items))

	for i, item := range items {
		results[i] = e.applyOne(ctx, locale, actor, item)
	}

	return results
}

// Revert builds compensating updates for prior outcomes and applies them
// through the same optimistic protocol: each target is restored only while
// its version still equals the version that prior update produced.
func (e *Engine) Revert(ctx context.Context, locale string, actor Actor, items []RevertItem) []ItemResult {
	requests := make([]ItemRequest, len(items))

	for i, item := range items {
		requests[i] = ItemRequest{
			UnitID:      item.UnitID,
			Content:     item.PriorContent,
			BaseVersion: item.PriorVersionAfterUpdate,
			State:       item.StateBeforeThatUpdate,
			SourceType:  catalog.SourceManual,
		}
	}

	return e.Apply(ctx, locale, actor, requests)
}

func (e *Engine) applyOne(ctx context.Context, locale string, actor Actor, item ItemRequest) ItemResult {
	unit, err := e.store.Unit(ctx, item.UnitID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ItemResult{ErrorKind: KindNotFound}
		}

		log.Err(err).Int64("unit_id", item.UnitID).Msg("Unit lookup failed")

		return ItemResult{ErrorKind: KindInternal}
	}

	target, err := e.store.Target(ctx, item.UnitID, locale)
	if errors.Is(err, store.ErrNotFound) {
		// Lazily created on first translation of the unit in this locale.
		target = &catalog.TranslationTarget{
			UnitID:  item.UnitID,
			Locale:  locale,
			Content: make([]string, unit.PluralCount()),
			State:   catalog.StateNew,
			Version: 0,
		}
	} else if err != nil {
		log.Err(err).Int64("unit_id", item.UnitID).Str("locale", locale).
			Msg("Target lookup failed")

		return ItemResult{ErrorKind: KindInternal}
	}

	result := ItemResult{
		OldVersion: target.Version,
		OldState:   target.State,
	}

	content := fitPluralForms(item.Content, unit.PluralCount())
	effective := effectiveState(item.State, content)

	// Permission is checked independently of version correctness: a stale
	// reviewer request still reports Unauthorized, not a version conflict.
	if requiresReview(target.State, effective) && !actor.Can(PermissionTranslationReview) {
		result.ErrorKind = KindUnauthorized

		return result
	}

	if item.BaseVersion != target.Version {
		result.ErrorKind = KindConcurrentModification

		return result
	}

	if !target.State.CanTransition(effective) {
		result.ErrorKind = KindInvalidTransition

		return result
	}

	updated := &catalog.TranslationTarget{
		UnitID:         target.UnitID,
		Locale:         locale,
		Content:        content,
		State:          effective,
		Version:        target.Version + 1,
		SourceType:     item.SourceType,
		LastModified:   e.timeNow(),
		LastModifiedBy: actor.Username,
	}

	if err := e.store.PersistTarget(ctx, updated, target.Version); err != nil {
		if errors.Is(err, store.ErrVersionMismatch) {
			// Lost the race between lookup and write.
			result.ErrorKind = KindConcurrentModification

			return result
		}

		log.Err(err).Int64("unit_id", item.UnitID).Str("locale", locale).
			Msg("Target persist failed")

		result.ErrorKind = KindInternal

		return result
	}

	result.Success = true
	result.NewVersion = updated.Version
	result.NewState = updated.State
	result.Target = updated.Snapshot()

	e.publish(ctx, unit, target.State, updated)

	return result
}

// publish raises the unit-updated event for the workspace viewing this
// document/locale. Delivery is non-blocking on the registry side, so the
// update path never waits on slow sessions.
func (e *Engine) publish(ctx context.Context, unit *catalog.TranslationUnit, oldState catalog.ContentState, updated *catalog.TranslationTarget) {
	if e.publisher == nil {
		return
	}

	doc, err := e.store.Document(ctx, unit.DocumentID)
	if err != nil {
		log.Err(err).Int64("document_id", unit.DocumentID).
			Msg("Document lookup for event publish failed")

		return
	}

	e.publisher.Publish(
		workspace.Key{ProjectSlug: doc.ProjectSlug, VersionSlug: doc.VersionSlug, Locale: updated.Locale},
		workspace.UnitUpdated{
			UnitID:     updated.UnitID,
			Locale:     updated.Locale,
			OldState:   oldState,
			NewState:   updated.State,
			NewVersion: updated.Version,
			NewContent: updated.Content,
			WordCount:  unit.WordCount(),
		},
	)
}

// effectiveState combines the proposed state with plural-fill completeness:
// content with any empty form cannot be Translated or Approved and is
// downgraded to NeedReview.
func effectiveState(proposed catalog.ContentState, content []string) catalog.ContentState {
	if !proposed.Valid() {
		proposed = catalog.StateNeedReview
	}

	if proposed == catalog.StateTranslated || proposed == catalog.StateApproved {
		probe := catalog.TranslationTarget{Content: content}
		if probe.HasEmptyForm() {
			return catalog.StateNeedReview
		}
	}

	return proposed
}

// requiresReview reports whether the move touches the Approved state in
// either direction, including re-saving an already Approved target.
func requiresReview(current, next catalog.ContentState) bool {
	return next == catalog.StateApproved || current == catalog.StateApproved
}

// fitPluralForms sizes the submitted content to the unit's plural count,
// padding missing forms with empty strings and dropping extras.
func fitPluralForms(content []string, count int) []string {
	fitted := make([]string, count)
	copy(fitted, content)

	return fitted
}
