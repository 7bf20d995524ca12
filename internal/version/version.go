// Package version carries build metadata set at link time:
//
//	go build -ldflags "-X github.com/doeshing/skip-go/internal/version.Version=v0.3.0"
package version

var (
	Version   = "dev"
	Commit    = ""
	BuildDate = ""
)
