package domain

import "errors"

var (
	// ErrParticipantNotFound means the participant no longer exists upstream; the session must re-authenticate.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrAlreadyAttempted is returned when a result already exists for (participant, round).
	ErrAlreadyAttempted = errors.New("round already attempted")
	// ErrAlreadySelected is returned when a different Round 3 track is already latched.
	ErrAlreadySelected = errors.New("round 3 track already selected")
	// ErrAccessDenied means the round gate is closed.
	ErrAccessDenied = errors.New("round access is closed")
	// ErrRoundLocked means the participant has not progressed to the round yet.
	ErrRoundLocked = errors.New("round not unlocked for participant")
	// ErrTrackMismatch means Round 3 content was requested outside the participant's track.
	ErrTrackMismatch = errors.New("challenge does not belong to the selected track")
	ErrInvalidRound  = errors.New("invalid round")
	ErrInvalidTrack  = errors.New("invalid track")
	// ErrInvalidVariant is returned for an unknown language or track of a round.
	ErrInvalidVariant = errors.New("invalid round variant")
	// ErrQuestionsNotFound indicates the content collaborator has no set for the round variant.
	ErrQuestionsNotFound = errors.New("question set not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrNotAdmin is returned when a participant invokes an administrator action.
	ErrNotAdmin             = errors.New("administrator privileges required")
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrAlreadyScored        = errors.New("submission already scored")
	ErrInvalidScore         = errors.New("submission score must be 4 or -1")
	ErrDuplicateParticipant = errors.New("participant already registered")
	ErrUsernameRequired     = errors.New("username is required")
	// ErrInvalidResult rejects a score outside 0..total or an empty round.
	ErrInvalidResult = errors.New("invalid result score")

	// ErrSessionNotFound is returned when no live session exists for a participant round.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionElsewhere means another instance hosts the participant round.
	ErrSessionElsewhere = errors.New("quiz session is running on another instance")
	// ErrInvalidTransition is returned when an action does not apply to the session's current state.
	ErrInvalidTransition = errors.New("action not allowed in current session state")
	// ErrSubmissionInProgress marks the losing side of a submit race. It is never shown to participants.
	ErrSubmissionInProgress = errors.New("submission already in progress")
	ErrQuestionOutOfRange   = errors.New("question index out of range")
	ErrOptionOutOfRange     = errors.New("option index out of range")
)
