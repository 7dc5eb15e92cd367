// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

// Route pattern constants for chi router registration.
const (
	// RouteRoot is the root path.
	RouteRoot = "/"
	// RouteLogin is the login route.
	RouteLogin = "/login"
	// RouteLogout is the logout route.
	RouteLogout = "/logout"
	// RouteAdmin is the admin dashboard.
	RouteAdmin = "/admin"
	// RouteEvents is the event log route, relative to /admin.
	RouteEvents = "/events"
	// RouteJobRun triggers a scheduled job, relative to /admin.
	RouteJobRun = "/jobs/{source}/{name}/run"

	// RouteHealth and friends are the health check endpoints.
	RouteHealth      = "/health"
	RouteHealthLive  = "/health/live"
	RouteHealthReady = "/health/ready"
)

// Redirect targets.
const (
	redirectLogin = RouteLogin
	redirectAdmin = RouteAdmin
)

// eventsPageSize caps the event log listing.
const eventsPageSize = 100
