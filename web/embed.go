// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package web embeds the core admin templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templates embed.FS

//go:embed static
var static embed.FS

// TemplatesFS returns the templates rooted at layouts/, partials/, auth/ and admin/.
func TemplatesFS() fs.FS {
	sub, _ := fs.Sub(templates, "templates")
	return sub
}

// StaticFS returns the static assets rooted at the asset directory.
func StaticFS() fs.FS {
	sub, _ := fs.Sub(static, "static")
	return sub
}
