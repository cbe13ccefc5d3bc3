package monitor

import "errors"

// ErrNoProviders is returned by NewSession when no providers are given.
var ErrNoProviders = errors.New("monitor: no providers configured")

// ErrDuplicateProvider is returned by NewSession when two providers claim
// the same source.
var ErrDuplicateProvider = errors.New("monitor: duplicate provider")

// ErrAlreadyActive is returned by Start when the session is already running.
var ErrAlreadyActive = errors.New("monitor: session already active")

// ErrNotActive is returned by operations that need a running session.
var ErrNotActive = errors.New("monitor: session not active")

// ErrUnknownSource is returned when a source id has no registered provider.
var ErrUnknownSource = errors.New("monitor: unknown source")

// ErrInvalidInterval is returned by SetInterval for non-positive durations.
var ErrInvalidInterval = errors.New("monitor: interval must be positive")

// ErrAdaptationNotFound is returned for lifecycle calls on unknown ids.
var ErrAdaptationNotFound = errors.New("monitor: adaptation not found")

// ErrAdaptationSettled is returned when an adaptation was already applied
// or dismissed; both transitions are terminal.
var ErrAdaptationSettled = errors.New("monitor: adaptation already settled")

// ErrNoMatch is returned by Apply when an activity replacement finds no
// occurrence of its original text in the itinerary.
var ErrNoMatch = errors.New("monitor: original text not found in itinerary")
