// Copyright 2024 - 2026, the Zanata project contributors
// SPDX-License-Identifier: LGPL-2.1-or-later

/*
Package middleware provides HTTP request handling functionality for the
translation server.

Middlewares are chained by the router; the order of registration is the
order of execution. Route definitions are centralized in the router
package's DefineRoutes function.
*/
package middleware
