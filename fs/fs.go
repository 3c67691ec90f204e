// Package appfs embeds the static assets shipped with the binaries.
package appfs

import "embed"

//go:embed all:templates assets
var FS embed.FS
