// Package version carries build metadata, overridable via -ldflags.
package version

// Version is the current application version.
var Version = "dev"
