// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

package config

// BuildVersion is the server version reported in response headers.
const BuildVersion = "0.3.0"
