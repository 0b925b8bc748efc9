// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no valid session accompanied the request.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrQuotaExceeded means the user's subscription tier does not allow
	// connecting another repository.
	ErrQuotaExceeded = errors.New("repository quota exceeded, upgrade to Pro")

	// ErrNotFound means the requested record does not exist or belongs to
	// another user.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyConnected means the user already has a record for this
	// provider repository.
	ErrAlreadyConnected = errors.New("repository already connected")

	// ErrNoAccessToken means the user has no stored provider token; jobs that
	// need provider access cannot succeed until the user reauthenticates.
	ErrNoAccessToken = errors.New("no GitHub access token found")
)

// ErrInvalidRepoFormat is returned when a repository name is not in
// 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}
