// Package version reports build information for apikit programs.
//
// The version and commit can be stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/apikit/version.Version=1.0.0" ./cmd/apicall
//
// Otherwise the commit and build date come from the VCS information the Go
// toolchain embeds.
package version
