// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package catalog defines the translation data model shared by the engines:
documents, translation units, per-locale translation targets, and the
content-state machine that governs target transitions.

Units are immutable once imported; only their obsolete flag changes.
Targets are the single concurrency-controlled entity in the system and
carry a monotonically increasing version number used for optimistic
compare-and-swap updates.
*/
package catalog
