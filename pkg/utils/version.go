// Package utils holds the small helpers that have no better home.
package utils

// Build metadata, overridden at release time via -ldflags. The zero values
// identify a local development build.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)
