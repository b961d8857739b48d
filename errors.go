package deckmix

import "errors"

var (
	// ErrNoTrack is returned by transport operations on a deck with nothing loaded.
	ErrNoTrack = errors.New("deckmix: no track loaded")

	// ErrInvalidTrack is returned by Load for an empty or inconsistent buffer.
	ErrInvalidTrack = errors.New("deckmix: invalid track")

	// ErrMissingBPM is returned by Sync and Nudge when a tempo is unknown.
	ErrMissingBPM = errors.New("deckmix: bpm not available")

	ErrUnknownDeck    = errors.New("deckmix: unknown deck")
	ErrUnknownControl = errors.New("deckmix: unknown control")

	// ErrMicUnavailable is returned when the live input cannot be opened.
	ErrMicUnavailable = errors.New("deckmix: microphone unavailable")
)
