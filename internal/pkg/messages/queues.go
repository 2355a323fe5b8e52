package messages

const (
	// Transcribe is the pipeline work queue
	Transcribe string = "Transcribe"
	// Inform is the notification queue
	Inform string = "Inform"
	// JobCancel is a fanout exchange for cancellation signals
	JobCancel string = "JobCancel"
	// StatusChange is a fanout exchange for job status events
	StatusChange string = "StatusChange"
)

const (
	// TagStatus carries job status in inform/status messages
	TagStatus string = "status"
	// TagProgress carries job progress percent in status messages
	TagProgress string = "progress"
	// TagStep carries the current pipeline step in status messages
	TagStep string = "step"
	// TagTimestamp carries message creation time
	TagTimestamp string = "timestamp"
)
