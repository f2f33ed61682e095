package osc

import "errors"

var (
	ErrInvalidAddress  = errors.New("osc: invalid address")
	ErrUnsupportedType = errors.New("osc: unsupported argument type")
	ErrTruncated       = errors.New("osc: truncated data")
	ErrMalformed       = errors.New("osc: malformed packet")
	ErrArgumentType    = errors.New("osc: argument type mismatch")
)
