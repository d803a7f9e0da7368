// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/zanata/zanata-sub001/configs"
	"github.com/zanata/zanata-sub001/core/catalog"
	"github.com/zanata/zanata-sub001/core/editor"
	"github.com/zanata/zanata-sub001/core/reuse"
	"github.com/zanata/zanata-sub001/core/store/memstore"
	"github.com/zanata/zanata-sub001/core/workspace"
	"github.com/zanata/zanata-sub001/server/middleware/limiter"
	"github.com/zanata/zanata-sub001/server/router"
	"github.com/zanata/zanata-sub001/server/routes"
)

type testEnv struct {
	server     *httptest.Server
	store      *memstore.Store
	workspaces *workspace.Registry
}

// newTestEnv wires the full request path the way run() does, on an
// in-memory store and an httptest listener.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	config.Global.SetDefaults()
	config.Global.Translation.Locales = []string{"fr", "de"}

	catalogStore := memstore.New()
	workspaces := workspace.NewRegistry(config.Global.Workspace.GracePeriod)
	engine := editor.New(catalogStore, workspaces)
	runner := reuse.NewRunner(catalogStore, engine)

	routes.Setup(catalogStore, engine, runner, workspaces)

	admission := limiter.NewRegistry(limiter.Ceilings{}, config.Global.Limiter.ActiveWindow)

	rt := router.NewRouter()
	rt.DefineRoutes()
	rt.RegisterMiddleware(admission)

	server := httptest.NewServer(rt)
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: catalogStore, workspaces: workspaces}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	payload := &bytes.Buffer{}

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		payload = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, e.server.URL+path, payload)
	require.NoError(t, err)

	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	return resp, buf.Bytes()
}

// seedDocument saves a document with one translation unit per content string.
func seedDocument(t *testing.T, s *memstore.Store, project, version, name string, contents ...string) (*catalog.Document, []*catalog.TranslationUnit) {
	t.Helper()

	ctx := context.Background()
	doc := &catalog.Document{ProjectSlug: project, VersionSlug: version, Name: name}
	require.NoError(t, s.SaveDocument(ctx, doc))

	units := make([]*catalog.TranslationUnit, 0, len(contents))

	for i, content := range contents {
		unit := &catalog.TranslationUnit{DocumentID: doc.ID, Content: []string{content}, Position: i}
		require.NoError(t, s.SaveUnit(ctx, unit))
		units = append(units, unit)
	}

	return doc, units
}

// TestTranslateThenCopyIntoNewVersion walks the whole editing lifecycle over
// HTTP: a translator fills a unit in the master version, a stale retry is
// rejected, and a copy-translation job carries the work into a freshly
// uploaded version while a workspace session watches the updates arrive.
func TestTranslateThenCopyIntoNewVersion(t *testing.T) {
	env := newTestEnv(t)

	_, masterUnits := seedDocument(t, env.store, "proj", "master", "app.po",
		"hello world", "goodbye")

	translator := map[string]string{"X-Auth-User": "alice"}

	// Translate "hello world" in master.
	resp, body := env.request(t, http.MethodPut,
		"/api/projects/proj/versions/master/translations/fr",
		map[string]any{"items": []editor.ItemRequest{{
			UnitID:  masterUnits[0].ID,
			Content: []string{"bonjour le monde"},
			State:   catalog.StateTranslated,
		}}}, translator)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var batch struct {
		Results []editor.ItemResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &batch))
	require.Len(t, batch.Results, 1)
	assert.True(t, batch.Results[0].Success)
	assert.Equal(t, 1, batch.Results[0].NewVersion)

	// A stale retry against the already-consumed version is rejected.
	resp, body = env.request(t, http.MethodPut,
		"/api/projects/proj/versions/master/translations/fr",
		map[string]any{"items": []editor.ItemRequest{{
			UnitID:      masterUnits[0].ID,
			Content:     []string{"bonjour tout le monde"},
			BaseVersion: 0,
			State:       catalog.StateTranslated,
		}}}, translator)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &batch))
	require.Len(t, batch.Results, 1)
	assert.False(t, batch.Results[0].Success)
	assert.Equal(t, editor.KindConcurrentModification, batch.Results[0].ErrorKind)

	// A new version of the document arrives, fully untranslated.
	betaDoc, betaUnits := seedDocument(t, env.store, "proj", "beta", "app.po",
		"hello world", "goodbye")

	// A reviewer keeps a workspace open on the beta version.
	watcher := workspace.NewSession("bob", "Bob")
	env.workspaces.Join(watcher, workspace.Key{
		ProjectSlug: "proj", VersionSlug: "beta", Locale: "fr",
	})

	// Kick off copy translation for the new version.
	resp, body = env.request(t, http.MethodPost,
		fmt.Sprintf("/api/projects/proj/versions/beta/copy-translations?docId=%d", betaDoc.ID),
		nil, translator)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var started struct {
		JobID int64 `json:"jobId"`
	}
	require.NoError(t, json.Unmarshal(body, &started))

	// Poll until the job reports Finished.
	require.Eventually(t, func() bool {
		resp, body := env.request(t, http.MethodGet,
			fmt.Sprintf("/api/jobs/%d", started.JobID), nil, translator)
		if resp.StatusCode != http.StatusOK {
			return false
		}

		var progress reuse.Progress
		if err := json.Unmarshal(body, &progress); err != nil {
			return false
		}

		return progress.Status == reuse.StatusFinished
	}, 5*time.Second, 10*time.Millisecond)

	// The matching unit was filled from master; the unmatched one was not.
	resp, body = env.request(t, http.MethodGet,
		fmt.Sprintf("/api/documents/%d/translations/fr", betaDoc.ID), nil, translator)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []struct {
		Unit   *catalog.TranslationUnit   `json:"unit"`
		Target *catalog.TranslationTarget `json:"target"`
	}
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)

	byUnitID := map[int64]*catalog.TranslationTarget{}
	for _, row := range rows {
		byUnitID[row.Unit.ID] = row.Target
	}

	copied := byUnitID[betaUnits[0].ID]
	require.NotNil(t, copied)
	assert.Equal(t, []string{"bonjour le monde"}, copied.Content)
	assert.Equal(t, catalog.StateTranslated, copied.State)
	assert.Equal(t, catalog.SourceCopyMatched, copied.SourceType)
	assert.Nil(t, byUnitID[betaUnits[1].ID])

	// The watching session saw the unit update land.
	var sawUpdate bool

	for !sawUpdate {
		select {
		case event := <-watcher.Events():
			if updated, ok := event.(workspace.UnitUpdated); ok {
				assert.Equal(t, betaUnits[0].ID, updated.UnitID)
				assert.Equal(t, "fr", updated.Locale)
				sawUpdate = true
			}
		default:
			t.Fatal("no unit update reached the workspace")
		}
	}
}

func TestUnsupportedLocaleRejected(t *testing.T) {
	env := newTestEnv(t)

	_, units := seedDocument(t, env.store, "proj", "master", "app.po", "hello")

	resp, body := env.request(t, http.MethodPut,
		"/api/projects/proj/versions/master/translations/xx",
		map[string]any{"items": []editor.ItemRequest{{
			UnitID:  units[0].ID,
			Content: []string{"???"},
			State:   catalog.StateTranslated,
		}}}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody map[string]string
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Contains(t, errBody["error"], "unsupported locale")
}

func TestCopyTranslationsUnknownVersion(t *testing.T) {
	env := newTestEnv(t)

	seedDocument(t, env.store, "proj", "master", "app.po", "hello world")

	resp, _ := env.request(t, http.MethodPost,
		"/api/projects/proj/versions/unknown/copy-translations", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
