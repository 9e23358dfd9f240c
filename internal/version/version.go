// Package version holds the build version of the apportion tools.
package version

// Version is overridden at link time with -ldflags "-X ...version.Version=...".
var Version = "0.3.0"
