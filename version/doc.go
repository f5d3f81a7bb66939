// Package version reports the quizgen build.
//
// Version, commit and build time are stamped with -ldflags and otherwise
// read from the Go build info:
//
//	go build -ldflags "-X github.com/kbukum/quizgen/version.Version=1.2.0" ./cmd/quizgen
package version
