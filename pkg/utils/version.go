// Package utils holds the small helpers shared across the recall commands
// and API that are too slight to carry a package of their own.
package utils

// Build identity, overridden via -ldflags at release time. Version is what
// the root endpoint and `recall version` report.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
