// Package templates embeds the admin dashboard pages.
package templates

import "embed"

//go:embed *.html
var FS embed.FS
