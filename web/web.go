// Package web embeds the server-rendered pages.
package web

import "embed"

// Templates holds layouts/*.html and pages/*.html.
//
//go:embed templates
var Templates embed.FS
