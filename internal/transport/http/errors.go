package http

import (
	"errors"
	"log"
	"net/http"

	"contest-service/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps domain sentinels to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrQuestionsNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrSubmissionNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccessDenied),
		errors.Is(err, domain.ErrRoundLocked),
		errors.Is(err, domain.ErrTrackMismatch),
		errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyAttempted),
		errors.Is(err, domain.ErrAlreadySelected),
		errors.Is(err, domain.ErrAlreadyScored),
		errors.Is(err, domain.ErrDuplicateParticipant),
		errors.Is(err, domain.ErrSubmissionInProgress),
		errors.Is(err, domain.ErrSessionElsewhere):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidRound),
		errors.Is(err, domain.ErrInvalidTrack),
		errors.Is(err, domain.ErrInvalidVariant),
		errors.Is(err, domain.ErrInvalidScore),
		errors.Is(err, domain.ErrInvalidResult),
		errors.Is(err, domain.ErrUsernameRequired),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrQuestionOutOfRange),
		errors.Is(err, domain.ErrOptionOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondWithDomainError writes err with its mapped status. Conflicts the
// client must act on carry a flag alongside the message.
func respondWithDomainError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		respondWithError(c, status, "internal error")
		return
	}
	body := gin.H{"error": err.Error()}
	switch {
	case errors.Is(err, domain.ErrAlreadyAttempted):
		body["already_attempted"] = true
	case errors.Is(err, domain.ErrAlreadySelected):
		body["already_selected"] = true
	}
	c.JSON(status, body)
}
