package game

import "errors"

// Severity separates errors a player can recover from, errors that abort game
// setup, and errors that indicate a server-side bug.
type Severity int

const (
	Recoverable Severity = iota
	FatalSetup
	InvariantViolation
)

func (s Severity) String() string {
	switch s {
	case Recoverable:
		return "recoverable"
	case FatalSetup:
		return "fatal_setup"
	case InvariantViolation:
		return "invariant_violation"
	}
	return "unknown"
}

type Code string

// Error is the outcome of a refused transition. Errors compare equal under
// errors.Is when their codes match, whatever their cause.
type Error struct {
	Code     Code
	Severity Severity
	Message  string
	cause    error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) wrap(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

func newError(code Code, sev Severity, msg string) *Error {
	return &Error{Code: code, Severity: sev, Message: msg}
}

var (
	ErrNotYourTurn      = newError("not_your_turn", Recoverable, "Not your turn!")
	ErrMustDiscardFirst = newError("must_discard_first", Recoverable, "You must discard before drawing again!")
	ErrMustDrawFirst    = newError("must_draw_first", Recoverable, "You must draw a card before discarding!")
	ErrInvalidIndex     = newError("invalid_index", Recoverable, "Invalid card index")
	ErrInvalidSource    = newError("invalid_source", Recoverable, "Invalid source!")
	ErrNoCardsLeft      = newError("no_cards_left", Recoverable, "No cards left in stock!")
	ErrDiscardEmpty     = newError("discard_empty", Recoverable, "No card in discard pile!")
	ErrDeadwoodTooHigh  = newError("deadwood_too_high", Recoverable, "Knock is not possible! Your deadwood is too high.")
	ErrRoundOver        = newError("round_over", Recoverable, "The round is over!")
	ErrGameOver         = newError("game_over", Recoverable, "The game is over! Start a new game.")
	ErrUnknownPlayer    = newError("unknown_player", Recoverable, "Unknown player")

	ErrShuffleFailed = newError("shuffle_failed", FatalSetup, "Secure shuffle failed")
	ErrKeySetup      = newError("key_setup", FatalSetup, "Key generation failed")

	ErrDiscardValidation = newError("discard_validation", InvariantViolation, "Discard validation failed. The card is not part of your hand.")
	ErrCardNotCommitted  = newError("card_not_committed", InvariantViolation, "Card missing from hand commitments")
	ErrRevealFailed      = newError("reveal_failed", InvariantViolation, "Card could not be revealed")
)

// SeverityOf classifies err. Anything that is not a *Error is treated as an
// invariant violation.
func SeverityOf(err error) Severity {
	var e *Error
	if errors.As(err, &e) {
		return e.Severity
	}
	return InvariantViolation
}

// Message returns the player-facing text for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}
