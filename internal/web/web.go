// Package web holds the HTML templates, embedded into the binary so the
// server does not depend on its working directory.
package web

import "embed"

// Templates contains templates/*.html. Every page pairs base.html with one
// page file that defines "content".
//
//go:embed templates/*.html
var Templates embed.FS
