package deckmix

// EventKind identifies an Event delivered on the Watch channel.
type EventKind int

const (
	// EventBPMDetected fires when tempo analysis for the current track of a
	// deck finishes. BPM is 0 when the tempo could not be determined.
	EventBPMDetected EventKind = iota
	// EventPlaybackEnded fires when a deck reaches the end of its buffer.
	EventPlaybackEnded
	// EventMicUnavailable fires when turning the microphone on failed.
	EventMicUnavailable
)

func (k EventKind) String() string {
	switch k {
	case EventBPMDetected:
		return "bpm-detected"
	case EventPlaybackEnded:
		return "playback-ended"
	case EventMicUnavailable:
		return "mic-unavailable"
	default:
		return "unknown"
	}
}

// Event is an asynchronous engine notification.
type Event struct {
	Kind    EventKind
	Deck    int // -1 for engine-wide events
	TrackID string
	BPM     float64
	Err     error
}

// Watch returns a channel that receives engine events. The channel is
// buffered (cap 16) and events are dropped when it is full, so the audio
// path never waits on a slow reader. Only the most recent Watch channel
// receives events.
func (e *Engine) Watch() <-chan Event {
	ch := make(chan Event, 16)
	e.events.Store(&ch)
	return ch
}

// emit is safe to call from the render goroutine.
func (e *Engine) emit(ev Event) {
	p := e.events.Load()
	if p == nil {
		return
	}
	select {
	case *p <- ev:
	default:
	}
}
