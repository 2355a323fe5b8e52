package persistence

import "time"

const (
	// FldStatus is a job status field name
	FldStatus = "status"
	// FldProgress is a job progress field name
	FldProgress = "progress"
	// FldCurrentStep is a job current step field name
	FldCurrentStep = "currentStep"
	// FldCancelRequested is a job cancel flag field name
	FldCancelRequested = "cancelRequested"
)

type (
	// Job keeps one transcription job record
	Job struct {
		ID       string `bson:"ID"`
		Name     string `bson:"name,omitempty"`
		FileID   string `bson:"fileID"`
		FileName string `bson:"fileName,omitempty"`
		FileSize int64  `bson:"fileSize,omitempty"`

		Model             string   `bson:"model,omitempty"`
		Language          string   `bson:"language,omitempty"`
		EnableDiarization bool     `bson:"enableDiarization"`
		EnableRedaction   bool     `bson:"enableRedaction"`
		EntityCategories  []string `bson:"entityCategories,omitempty"`
		NotifyEmail       string   `bson:"notifyEmail,omitempty"`

		Status          string `bson:"status"`
		Progress        int32  `bson:"progress"`
		CurrentStep     string `bson:"currentStep,omitempty"`
		ErrorMessage    string `bson:"error,omitempty"`
		ErrorCode       string `bson:"errorCode,omitempty"`
		CancelRequested bool   `bson:"cancelRequested,omitempty"`

		CreatedAt   time.Time  `bson:"createdAt"`
		StartedAt   *time.Time `bson:"startedAt,omitempty"`
		CompletedAt *time.Time `bson:"completedAt,omitempty"`

		DurationSeconds float64 `bson:"durationSeconds,omitempty"`
		SpeakerCount    int     `bson:"speakerCount,omitempty"`
		WordCount       int     `bson:"wordCount,omitempty"`
		SegmentCount    int     `bson:"segmentCount,omitempty"`
	}

	// Segment is one ordered unit of transcript output
	Segment struct {
		ID                  string  `bson:"ID"`
		JobID               string  `bson:"jobID"`
		Index               int     `bson:"index"`
		Start               float64 `bson:"start"`
		End                 float64 `bson:"end"`
		Text                string  `bson:"text"`
		RedactedText        string  `bson:"redactedText,omitempty"`
		PatternRedactedText string  `bson:"patternRedactedText,omitempty"`
		Speaker             string  `bson:"speaker,omitempty"`
		Confidence          float64 `bson:"confidence,omitempty"`
	}

	// Word keeps word level timestamps of a segment
	Word struct {
		ID         string  `bson:"ID"`
		JobID      string  `bson:"jobID"`
		SegmentID  string  `bson:"segmentID"`
		Index      int     `bson:"index"`
		Start      float64 `bson:"start"`
		End        float64 `bson:"end"`
		Text       string  `bson:"text"`
		Confidence float64 `bson:"confidence,omitempty"`
		Included   bool    `bson:"included"`
	}
)
