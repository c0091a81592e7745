package domain

import "errors"

// Kind classifies an error so transports can pick a status without string matching.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindExternal   Kind = "external"
	KindInternal   Kind = "internal"
)

// Error is a classified error. Sentinels below are *Error values so callers can
// compare with errors.Is and still recover the kind with KindOf.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg == "" {
			return e.Err.Error()
		}
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds a classified error.
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies err under kind, keeping it reachable via errors.Is.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Validation returns a validation error with the given message.
func Validation(msg string) *Error {
	return NewError(KindValidation, msg)
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or KindInternal when none is found.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// ErrQuizNotFound indicates the quiz id is unknown.
	ErrQuizNotFound = NewError(KindNotFound, "quiz not found")
	// ErrQuestionNotFound indicates a submitted question id is invalid for the quiz.
	ErrQuestionNotFound = NewError(KindNotFound, "question not found")
	// ErrNotParticipant is returned when a user acts on a quiz before joining.
	ErrNotParticipant = NewError(KindNotFound, "not a participant")

	ErrQuizNotJoinable      = NewError(KindConflict, "quiz is not active")
	ErrQuizFull             = NewError(KindConflict, "quiz is full")
	ErrAlreadyJoined        = NewError(KindConflict, "already joined this quiz")
	ErrAlreadyAnswered      = NewError(KindConflict, "already answered this question")
	ErrAlreadyCompleted     = NewError(KindConflict, "quiz already completed")
	ErrRewardAlreadyClaimed = NewError(KindConflict, "reward already claimed")
	ErrNoPendingBalance     = NewError(KindConflict, "no pending tokens to claim")
	ErrInvalidTransition    = NewError(KindConflict, "invalid status transition")
	// ErrClaimBusy is returned when another claim for the same user holds the lock.
	ErrClaimBusy = NewError(KindConflict, "claim already in progress")

	ErrInvalidAmount  = NewError(KindValidation, "invalid token amount")
	ErrInvalidAddress = NewError(KindValidation, "no valid wallet address found")
	ErrNotHost        = NewError(KindValidation, "only the host can change quiz status")

	// ErrMintTimeout means the mint did not confirm in time; it may still land on chain.
	ErrMintTimeout = NewError(KindExternal, "mint timed out")
	// ErrMintRejected means the minting collaborator reported a failure.
	ErrMintRejected = NewError(KindExternal, "mint rejected")
	// ErrClaimFailed wraps a mint failure during quiz prize distribution.
	ErrClaimFailed = NewError(KindExternal, "failed to claim reward")
)
