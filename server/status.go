package server

import (
	"net/http"

	"github.com/agentplane/agentplane/faults"
)

// StatusForError maps a fault category to the HTTP status the
// management surface reports for it.
func StatusForError(err error) int {
	switch faults.CategoryOf(err) {
	case faults.InvalidPathError, faults.ValidationError:
		return http.StatusBadRequest
	case faults.ForbiddenError:
		return http.StatusForbidden
	case faults.NotFoundError:
		return http.StatusNotFound
	case faults.ConflictError:
		return http.StatusConflict
	case faults.NotInitializedError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
