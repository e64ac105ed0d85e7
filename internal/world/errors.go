package world

import "strings"

// NumericError is a protocol error: the caller should send this numeric
// reply back to the originating session and otherwise continue as normal
// (spec.md §7 taxon 1, "protocol errors").
type NumericError struct {
	Code   string
	Params []string
}

func (e *NumericError) Error() string {
	return e.Code + " " + strings.Join(e.Params, " ")
}

func numErr(code string, params ...string) *NumericError {
	return &NumericError{Code: code, Params: params}
}
