// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package workspace tracks which editing sessions are viewing which
document/locale and fans out state-change and presence events to them.

A workspace is an ephemeral server-side record keyed by (project, version,
locale). It appears when the first session joins and is torn down once it
has been empty for a grace period, which tolerates rapid reconnects. Nothing
here is persisted across restarts.

Delivery is at-least-once and best-effort: each session owns a buffered
outbound channel, and a session that cannot keep up loses events rather than
blocking the update path.
*/
package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// sessionBuffer is the per-session outbound event buffer. A full buffer
	// drops the event for that session only.
	sessionBuffer = 64

	// DefaultGracePeriod is how long an empty workspace survives before the
	// janitor removes it.
	DefaultGracePeriod = 30 * time.Second
)

// timeNow wraps time.Now so tests can control the janitor's clock.
var timeNow = time.Now

// Key identifies a workspace.
type Key struct {
	ProjectSlug string
	VersionSlug string
	Locale      string
}

func (k Key) String() string {
	return k.ProjectSlug + "/" + k.VersionSlug + "/" + k.Locale
}

// Session is one connected editing session.
//
// Construct sessions with NewSession; the zero value has no event channel.
type Session struct {
	ID          string
	Username    string
	DisplayName string

	events chan Event
}

// NewSession creates a session with a fresh id and an outbound event buffer.
func NewSession(username, displayName string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: displayName,
		events:      make(chan Event, sessionBuffer),
	}
}

// Events is the session's outbound event stream. The transport layer drains
// it and writes to the client connection.
func (s *Session) Events() <-chan Event {
	return s.events
}

// trySend delivers without blocking; a slow session loses the event.
func (s *Session) trySend(event Event) {
	select {
	case s.events <- event:
	default:
		log.Warn().
			Str("session_id", s.ID).
			Str("kind", string(event.Kind())).
			Msg("Session event buffer full, dropping event")
	}
}

// workspaceState holds the live sessions of one workspace plus the moment it
// became empty (zero while occupied).
type workspaceState struct {
	sessions   map[string]*Session
	order      []string // join order, for stable participant lists
	emptySince time.Time
}

// Registry is the workspace broadcast service. It owns every workspace and
// the session->workspace mapping. All operations are safe for concurrent
// use.
type Registry struct {
	mu         sync.Mutex
	workspaces map[Key]*workspaceState
	membership map[string]Key // session id -> joined workspace
	grace      time.Duration

	stopJanitor chan struct{}
	janitorOnce sync.Once
}

// NewRegistry creates a registry with the given empty-workspace grace
// period. Non-positive grace falls back to DefaultGracePeriod.
func NewRegistry(grace time.Duration) *Registry {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	return &Registry{
		workspaces:  make(map[Key]*workspaceState),
		membership:  make(map[string]Key),
		grace:       grace,
		stopJanitor: make(chan struct{}),
	}
}

// Join registers the session under the workspace, notifies the sessions
// already present, and returns the resulting participant list (including the
// joiner).
func (r *Registry) Join(session *Session, key Key) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A session views exactly one workspace; joining another implies
	// leaving the previous one first.
	if previous, ok := r.membership[session.ID]; ok && previous != key {
		r.leaveLocked(session.ID, previous)
	}

	ws, ok := r.workspaces[key]
	if !ok {
		ws = &workspaceState{sessions: make(map[string]*Session)}
		r.workspaces[key] = ws

		log.Debug().Str("workspace", key.String()).Msg("Workspace created")
	}

	ws.emptySince = time.Time{}

	if _, ok := ws.sessions[session.ID]; !ok {
		ws.order = append(ws.order, session.ID)
	}

	ws.sessions[session.ID] = session
	r.membership[session.ID] = key

	participants := ws.participantsLocked()
	event := ParticipantsChanged{Participants: participants}

	for _, id := range ws.order {
		if id == session.ID {
			continue
		}

		ws.sessions[id].trySend(event)
	}

	return participants
}

// Leave removes the session from its workspace and notifies the remaining
// sessions. An empty workspace is kept for the grace period before the
// janitor tears it down.
func (r *Registry) Leave(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.membership[session.ID]
	if !ok {
		return
	}

	r.leaveLocked(session.ID, key)
}

func (r *Registry) leaveLocked(sessionID string, key Key) {
	delete(r.membership, sessionID)

	ws, ok := r.workspaces[key]
	if !ok {
		return
	}

	delete(ws.sessions, sessionID)

	for i, id := range ws.order {
		if id == sessionID {
			ws.order = append(ws.order[:i], ws.order[i+1:]...)

			break
		}
	}

	if len(ws.sessions) == 0 {
		ws.emptySince = timeNow()

		return
	}

	event := ParticipantsChanged{Participants: ws.participantsLocked()}
	for _, id := range ws.order {
		ws.sessions[id].trySend(event)
	}
}

// Publish fans the event out to every session currently joined to the
// workspace. Events published to one workspace reach each of its sessions in
// publish order; nothing is guaranteed across workspaces.
func (r *Registry) Publish(key Key, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[key]
	if !ok {
		return
	}

	for _, id := range ws.order {
		ws.sessions[id].trySend(event)
	}
}

// SelectionChanged broadcasts which unit the session is viewing to the rest
// of its workspace.
func (r *Registry) SelectionChanged(session *Session, unitID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.membership[session.ID]
	if !ok {
		return
	}

	ws, ok := r.workspaces[key]
	if !ok {
		return
	}

	event := SelectionChanged{SessionID: session.ID, UnitID: unitID}

	for _, id := range ws.order {
		if id == session.ID {
			continue
		}

		ws.sessions[id].trySend(event)
	}
}

// Participants returns the current participant list of a workspace.
func (r *Registry) Participants(key Key) []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[key]
	if !ok {
		return nil
	}

	return ws.participantsLocked()
}

// StartJanitor launches the background sweep that removes workspaces whose
// grace period has expired. Stop shuts it down.
func (r *Registry) StartJanitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-r.stopJanitor:
				return
			}
		}
	}()
}

// Stop terminates the janitor goroutine.
func (r *Registry) Stop() {
	r.janitorOnce.Do(func() { close(r.stopJanitor) })
}

// sweep removes workspaces that have been empty longer than the grace
// period.
func (r *Registry) sweep() {
	now := timeNow()

	r.mu.Lock()
	defer r.mu.Unlock()

	for key, ws := range r.workspaces {
		if len(ws.sessions) > 0 || ws.emptySince.IsZero() {
			continue
		}

		if now.Sub(ws.emptySince) >= r.grace {
			delete(r.workspaces, key)

			log.Debug().Str("workspace", key.String()).Msg("Workspace torn down")
		}
	}
}

func (ws *workspaceState) participantsLocked() []Participant {
	participants := make([]Participant, 0, len(ws.order))

	for _, id := range ws.order {
		session := ws.sessions[id]
		participants = append(participants, Participant{
			SessionID:   session.ID,
			Username:    session.Username,
			DisplayName: session.DisplayName,
		})
	}

	return participants
}
