// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package routes

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/zanata/zanata-sub001/core/workspace"
	"github.com/zanata/zanata-sub001/server/request_context"
	"github.com/zanata/zanata-sub001/server/utils"
)

const socketBufferSize = 1024

// upgrader accepts same-origin browser connections and non-browser clients
// (which send no Origin header).
var upgrader = websocket.Upgrader{
	ReadBufferSize:  socketBufferSize,
	WriteBufferSize: socketBufferSize,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		return origin == "" || origin == utils.GetOriginFromRequest(r)
	},
}

// eventEnvelope frames every event pushed to a client.
type eventEnvelope struct {
	Kind  workspace.EventKind `json:"kind"`
	Event workspace.Event     `json:"event"`
}

// clientMessage is what clients may send over the socket. Only selection
// announcements are supported; everything else goes through the REST API.
type clientMessage struct {
	Type   string `json:"type"`
	UnitID int64  `json:"unitId"`
}

// WorkspaceEvents upgrades the connection to a websocket and joins the
// session to the (project, version, locale) workspace. The session receives
// presence and unit-update events until the client disconnects.
//
// Not wrapped in CatchError: the upgrade needs the raw connection, and the
// upgrader writes its own failure response.
func WorkspaceEvents(w http.ResponseWriter, r *http.Request) {
	key := workspace.Key{
		ProjectSlug: utils.GetPathVar(r, "project"),
		VersionSlug: utils.GetPathVar(r, "version"),
		Locale:      utils.GetPathVar(r, "locale"),
	}

	actor := request_context.FromRequest(r).Actor

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("workspace", key.String()).
			Msg("Websocket upgrade failed")

		return
	}

	defer conn.Close()

	session := workspace.NewSession(actor.Username, actor.Username)

	participants := workspaces.Join(session, key)
	defer workspaces.Leave(session)

	// The joiner gets the initial participant list directly; everyone else
	// was notified by Join.
	if err := conn.WriteJSON(eventEnvelope{
		Kind:  workspace.KindParticipantsChanged,
		Event: workspace.ParticipantsChanged{Participants: participants},
	}); err != nil {
		return
	}

	done := make(chan struct{})
	defer close(done)

	// Writer pump. The websocket connection allows one concurrent writer, so
	// all writes after the initial frame happen here.
	go func() {
		for {
			select {
			case event := <-session.Events():
				if err := conn.WriteJSON(eventEnvelope{Kind: event.Kind(), Event: event}); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session_id", session.ID).
					Msg("Workspace session closed unexpectedly")
			}

			return
		}

		if msg.Type == "selection" {
			workspaces.SelectionChanged(session, msg.UnitID)
		}
	}
}
