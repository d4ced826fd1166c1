package workflow

// stepName identifies one of the saga's forward steps, for the
// WorkflowLog (spec.md §3) and for telemetry/metrics labels.
type stepName string

const (
	stepCreateTripRequest stepName = "create_trip_request"
	stepMatch             stepName = "match"
	stepPrice             stepName = "price"
	stepReserveDriver     stepName = "reserve_driver"
	stepCreateTrip        stepName = "create_trip"
)

// logEntry is one (step_name, entity_id) pair, per spec.md §3's
// WorkflowLog: "ordered list of (step_name, entity_id) pairs, used to
// drive compensation in reverse."
type logEntry struct {
	step     stepName
	entityID string
}

// executionLog is the transient, per-execution record of which forward
// steps completed and what entity each one touched. Every completed
// forward step is appended, including create_trip; compensation skips
// the steps that have no compensation defined.
type executionLog struct {
	entries []logEntry
}

func (l *executionLog) record(step stepName, entityID string) {
	l.entries = append(l.entries, logEntry{step: step, entityID: entityID})
}

// reverse returns the recorded entries in reverse order, the order
// compensations must run in per spec.md §4.6.
func (l *executionLog) reverse() []logEntry {
	out := make([]logEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}
