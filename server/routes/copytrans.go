// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package routes

import (
	"errors"
	"net/http"
	"strconv"

	config "github.com/zanata/zanata-sub001/configs"
	"github.com/zanata/zanata-sub001/core/reuse"
	"github.com/zanata/zanata-sub001/core/store"
	"github.com/zanata/zanata-sub001/server/utils"
)

var (
	errBadJobID    = errors.New("job id must be an integer")
	errBadDocID    = errors.New("docId must be an integer")
	errUnknownJob  = errors.New("unknown job")
	errNoSuchScope = errors.New("unknown project version or document")
)

// copyTransOverrides are the optional per-run settings a trigger request may
// carry. Absent fields fall back to the server configuration.
type copyTransOverrides struct {
	SameContext     *bool    `json:"sameContext"`
	SameDocument    *bool    `json:"sameDocument"`
	SameProject     *bool    `json:"sameProject"`
	RequireApproved *bool    `json:"requireApproved"`
	Locales         []string `json:"locales"`
}

type jobStarted struct {
	JobID int64 `json:"jobId"`
}

// StartCopyTranslations launches a copy-translation job for a project
// version, optionally limited to one document via the docId query parameter.
// Responds 202 with the job id, or 409 while a job already runs for the same
// project version.
func StartCopyTranslations(w http.ResponseWriter, r *http.Request) error {
	project := utils.GetPathVar(r, "project")
	version := utils.GetPathVar(r, "version")

	opts := reuse.Options{
		Scope: reuse.Scope{
			SameContext:  config.Global.CopyTrans.SameContext,
			SameDocument: config.Global.CopyTrans.SameDocument,
			SameProject:  config.Global.CopyTrans.SameProject,
		},
		RequireApproved: config.Global.Translation.RequireReview,
		Locales:         config.Global.Translation.Locales,
	}

	if r.ContentLength != 0 {
		var overrides copyTransOverrides
		if err := decodeJSON(w, r, &overrides); err != nil {
			return err
		}

		applyOverrides(&opts, overrides)
	}

	if docID := utils.GetQueryParam(r, "docId"); docID != "" {
		id, err := strconv.ParseInt(docID, 10, 64)
		if err != nil {
			return NewStatusError(http.StatusBadRequest, errBadDocID)
		}

		opts.DocumentID = id
	}

	jobID, err := jobs.StartForDocument(r.Context(), project, version, opts)

	switch {
	case errors.Is(err, reuse.ErrNotAccepted):
		return NewStatusError(http.StatusConflict, err)
	case errors.Is(err, store.ErrNotFound):
		return NewStatusError(http.StatusNotFound, errNoSuchScope)
	case err != nil:
		return err
	}

	return writeJSON(w, http.StatusAccepted, jobStarted{JobID: jobID})
}

// JobProgress reports the counters and status of a copy-translation job.
func JobProgress(w http.ResponseWriter, r *http.Request) error {
	job, err := lookupJob(r)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, job.Progress())
}

// CancelJob requests cooperative cancellation of a running job. Matches
// already applied stand. Cancelling a finished job is a no-op.
func CancelJob(w http.ResponseWriter, r *http.Request) error {
	job, err := lookupJob(r)
	if err != nil {
		return err
	}

	job.Cancel()

	return writeJSON(w, http.StatusAccepted, job.Progress())
}

func lookupJob(r *http.Request) (*reuse.Job, error) {
	id, err := strconv.ParseInt(utils.GetPathVar(r, "id"), 10, 64)
	if err != nil {
		return nil, NewStatusError(http.StatusBadRequest, errBadJobID)
	}

	job, ok := jobs.Job(id)
	if !ok {
		return nil, NewStatusError(http.StatusNotFound, errUnknownJob)
	}

	return job, nil
}

func applyOverrides(opts *reuse.Options, overrides copyTransOverrides) {
	if overrides.SameContext != nil {
		opts.Scope.SameContext = *overrides.SameContext
	}

	if overrides.SameDocument != nil {
		opts.Scope.SameDocument = *overrides.SameDocument
	}

	if overrides.SameProject != nil {
		opts.Scope.SameProject = *overrides.SameProject
	}

	if overrides.RequireApproved != nil {
		opts.RequireApproved = *overrides.RequireApproved
	}

	if len(overrides.Locales) > 0 {
		opts.Locales = overrides.Locales
	}
}
