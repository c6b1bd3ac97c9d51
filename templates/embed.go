// Package templates embeds the server-rendered pages
package templates

import "embed"

//go:embed *.html layouts/*.html
var FS embed.FS
