package detect

// DefaultStateCountThreshold is the number of repeat observations
// (beyond the first) required before a raw state change is trusted.
// With the triggering frame that is four consecutive identical
// observations.
const DefaultStateCountThreshold = 3

// Debouncer converts noisy per-frame light classifications into a
// stable published decision. It holds the last committed decision
// through the confirmation window rather than defaulting to "no stop",
// so a previously committed stop persists through transient
// misclassifications.
//
// Debouncer is not safe for concurrent use; the detector evaluates one
// frame at a time.
type Debouncer struct {
	threshold int

	state         LightState
	count         int
	lastPublished int
}

// NewDebouncer returns a Debouncer requiring threshold repeat
// observations before committing a state change. The initial stable
// state is unknown with no active stop.
func NewDebouncer(threshold int) *Debouncer {
	if threshold < 1 {
		threshold = DefaultStateCountThreshold
	}
	return &Debouncer{
		threshold:     threshold,
		state:         LightUnknown,
		lastPublished: NoStopWaypoint,
	}
}

// Observe consumes one frame's (stop waypoint, raw state) pair and
// returns the waypoint index to publish for this frame:
//
//  1. a raw state differing from the tracked state resets the
//     confirmation counter and holds the previous decision;
//  2. once the state has been observed threshold further times, the
//     decision commits: the stop waypoint when red, no stop otherwise;
//  3. below the threshold the previous decision is republished.
func (d *Debouncer) Observe(stopWaypoint int, raw LightState) int {
	var out int
	switch {
	case raw != d.state:
		d.state = raw
		d.count = 0
		out = d.lastPublished
	case d.count >= d.threshold:
		if raw == LightRed {
			out = stopWaypoint
		} else {
			out = NoStopWaypoint
		}
		d.lastPublished = out
	default:
		out = d.lastPublished
	}
	d.count++
	return out
}

// State returns the raw state currently being confirmed.
func (d *Debouncer) State() LightState { return d.state }

// ConsecutiveCount returns how many times the current state has been
// observed since the last reset.
func (d *Debouncer) ConsecutiveCount() int { return d.count }

// LastPublished returns the most recently committed decision.
func (d *Debouncer) LastPublished() int { return d.lastPublished }
