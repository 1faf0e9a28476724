// +build dev

package build

// Release is set based on the build tags used when compiling. Exactly one
// of the three release_*.go files is compiled in for any build.
const Release = "dev"

// DEBUG controls whether Critical and Severe panic in addition to printing.
const DEBUG = true
