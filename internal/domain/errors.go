package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for the given ID.
	ErrSessionNotFound = errors.New("assessment session not found")
	// ErrSessionClosed is returned when an intent reaches a torn-down session.
	ErrSessionClosed = errors.New("assessment session closed")
	// ErrSkillNotFound indicates the skill record could not be loaded.
	ErrSkillNotFound = errors.New("skill not found")
	// ErrNoQuestions indicates the question source produced an empty set.
	ErrNoQuestions = errors.New("no questions generated for skill")
	// ErrCaptureUnsupported indicates the client has no speech capture
	// available; manual editing remains possible.
	ErrCaptureUnsupported = errors.New("speech capture not supported")
)
