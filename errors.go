package ssbspoof

import "errors"

// Failure kinds. Wrapped with %w so callers can classify the diagnostic
// without parsing messages; every kind terminates the program with exit 1.
var (
	ErrConfig        = errors.New("configuration error")
	ErrDevice        = errors.New("device error")
	ErrDetectionMiss = errors.New("target not detected")
	ErrEncode        = errors.New("encode error")
	ErrTransmitAbort = errors.New("transmission aborted")
)
