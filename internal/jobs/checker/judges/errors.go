package judges

import (
	"errors"
	"fmt"
)

var (
	// ErrNoUsableJudges is returned when no candidate judge passed the liveness check.
	ErrNoUsableJudges = errors.New("no usable judges")

	// ErrJudgeParse matches every *JudgeParseError through errors.Is.
	ErrJudgeParse = errors.New("judge page could not be parsed")
)

// JudgeParseError reports a judge echo page that does not follow the
// "<pre> block of KEY = VALUE lines" convention.
type JudgeParseError struct {
	Judge  string
	Reason string
}

func (e *JudgeParseError) Error() string {
	if e.Judge == "" {
		return fmt.Sprintf("%s: %s", ErrJudgeParse, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrJudgeParse, e.Judge, e.Reason)
}

func (e *JudgeParseError) Unwrap() error {
	return ErrJudgeParse
}
