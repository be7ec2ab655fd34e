package version

// Version is the current version of relayhub.
// This value can be overridden at build time using:
//
//	go build -ldflags="-X 'github.com/ArnoKim89/arno-game-server/internal/version.Version=v1.0.0'"
var Version = "dev"
