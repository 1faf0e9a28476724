package build

// GitRevision and BuildTime are stamped by the build script via -ldflags;
// they stay empty in a plain `go build`.
var (
	GitRevision string
	BuildTime   string
)
