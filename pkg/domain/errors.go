package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrShapeMismatch is returned when a row does not match the matrix width.
var ErrShapeMismatch = errors.New("row width does not match matrix shape")

// ErrIndexOutOfRange is returned for cell or row access outside the matrix bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrAgentCount is returned when the number of agents does not match the
// number of matrix rows at chain construction.
var ErrAgentCount = errors.New("agent count does not match matrix rows")
