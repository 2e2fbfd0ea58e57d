package scaffolding

import (
	"embed"
	"io/fs"
)

//go:embed definitions assets
var bundled embed.FS

// Files returns the definitions and static assets bundled with the plugin.
func Files() fs.FS { return bundled }
