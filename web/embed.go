// Package web embeds the HTML templates served by the login endpoints.
package web

import "embed"

//go:embed templates/*.html
var TemplateFiles embed.FS
