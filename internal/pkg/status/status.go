package status

// Status represents a transcription job state
type Status int

const (
	// Unknown value
	Unknown Status = iota
	// Pending - job created, not yet picked by a worker
	Pending
	// Processing - pipeline is running
	Processing
	// Completed terminal value
	Completed
	// Failed terminal value
	Failed
	// Cancelled terminal value
	Cancelled
)

var (
	statusName = map[Status]string{Pending: "pending", Processing: "processing",
		Completed: "completed", Failed: "failed", Cancelled: "cancelled"}
	nameStatus = map[string]Status{"pending": Pending, "processing": Processing,
		"completed": Completed, "failed": Failed, "cancelled": Cancelled}
)

// Name returns the persisted name of a status
func Name(st Status) string {
	return statusName[st]
}

// From parses status from its persisted name
func From(st string) Status {
	return nameStatus[st]
}

// Terminal returns true for absorbing states
func Terminal(st Status) bool {
	return st == Completed || st == Failed || st == Cancelled
}

// CanTransition returns true if the edge from->to is allowed by the state machine
func CanTransition(from, to Status) bool {
	switch from {
	case Pending:
		return to == Processing
	case Processing:
		return to == Completed || to == Failed || to == Cancelled
	}
	return false
}
