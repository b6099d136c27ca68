package credits

import "errors"

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrInvalidAmount       = errors.New("invalid transaction amount")
)
