package entity

import "errors"

var (
	ErrStreamUnavailable        = errors.New("stream unavailable")
	ErrNoFrame                  = errors.New("no frame")
	ErrActuatorConnectionFailed = errors.New("actuator connection failed")
	ErrActuatorNotConnected     = errors.New("actuator is not connected")
	ErrActuatorWriteFailed      = errors.New("actuator write failed")
	ErrActuatorReadFailed       = errors.New("actuator read failed")
	ErrInvalidCommandArgument   = errors.New("invalid command argument")
	ErrNotAuthorized            = errors.New("session is not authorized")
	ErrCommandQueueFull         = errors.New("command queue is full")
)
