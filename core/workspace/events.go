// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package workspace

import "github.com/zanata/zanata-sub001/core/catalog"

// EventKind tags the events pushed to editing sessions.
type EventKind string

const (
	KindParticipantsChanged EventKind = "ParticipantsChanged"
	KindUnitUpdated         EventKind = "UnitUpdated"
	KindSelectionChanged    EventKind = "SelectionChanged"
)

// Event is anything the registry can fan out to the sessions of a workspace.
type Event interface {
	Kind() EventKind
}

// Participant is the public identity of a joined session.
type Participant struct {
	SessionID   string `json:"sessionId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

// ParticipantsChanged announces the full participant list of a workspace
// after a join or leave.
type ParticipantsChanged struct {
	Participants []Participant `json:"participants"`
}

func (ParticipantsChanged) Kind() EventKind { return KindParticipantsChanged }

// UnitUpdated announces an accepted mutation of a translation target.
//
// Clients use it to refresh in place; on reconnect they re-fetch full unit
// state instead of relying on event replay, since delivery is best-effort.
type UnitUpdated struct {
	UnitID     int64                `json:"unitId"`
	Locale     string               `json:"locale"`
	OldState   catalog.ContentState `json:"oldState"`
	NewState   catalog.ContentState `json:"newState"`
	NewVersion int                  `json:"newVersion"`
	NewContent []string             `json:"newContent"`
	WordCount  int                  `json:"wordCount"`
}

func (UnitUpdated) Kind() EventKind { return KindUnitUpdated }

// SelectionChanged is a lightweight presence event: which unit a participant
// is currently viewing.
type SelectionChanged struct {
	SessionID string `json:"sessionId"`
	UnitID    int64  `json:"unitId"`
}

func (SelectionChanged) Kind() EventKind { return KindSelectionChanged }
