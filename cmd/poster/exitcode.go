package main

import (
	"github.com/UnendingLoop/ComicPoster/internal/model"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
	exitAuth   = 3
	exitIO     = 4
)

// exitCode maps the run result to the process exit status; auth gets its own code so that the operator rotates the token.
// The first error in the chain decides: a failed cleanup joined to a remote failure still exits as the remote one.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	switch model.KindOf(err) {
	case model.KindAuth:
		return exitAuth
	case model.KindIO:
		return exitIO
	default:
		return exitFailed
	}
}
