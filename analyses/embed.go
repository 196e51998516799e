// Package analyses embeds the analysis definitions shipped with neurogrid.
package analyses

import "embed"

// FS holds the bundled .hcl definitions.
//
//go:embed *.hcl
var FS embed.FS
