package api

import (
	"time"

	"github.com/intervju/skriba/internal/pkg/persistence"
)

// UploadResult - upload method response in JSON
type UploadResult struct {
	FileID   string `json:"fileID"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// SubmitRequest - job creation request in JSON
type SubmitRequest struct {
	Name              string   `json:"name"`
	FileID            string   `json:"fileID"`
	FileName          string   `json:"fileName"`
	FileSize          int64    `json:"fileSize,omitempty"`
	Model             string   `json:"model"`
	Language          string   `json:"language"`
	EnableDiarization bool     `json:"enableDiarization"`
	EnableRedaction   bool     `json:"enableRedaction"`
	EntityCategories  []string `json:"entityCategories"`
	NotifyEmail       string   `json:"notifyEmail"`
}

// Job - job record on the wire
type Job struct {
	ID                string     `json:"id"`
	Name              string     `json:"name,omitempty"`
	FileName          string     `json:"fileName,omitempty"`
	Model             string     `json:"model,omitempty"`
	Language          string     `json:"language,omitempty"`
	EnableDiarization bool       `json:"enableDiarization"`
	EnableRedaction   bool       `json:"enableRedaction"`
	Status            string     `json:"status"`
	Progress          int32      `json:"progress"`
	CurrentStep       string     `json:"currentStep,omitempty"`
	ErrorMessage      string     `json:"error,omitempty"`
	ErrorCode         string     `json:"errorCode,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	DurationSeconds   float64    `json:"durationSeconds,omitempty"`
	SpeakerCount      int        `json:"speakerCount,omitempty"`
	SegmentCount      int        `json:"segmentCount,omitempty"`
	WordCount         int        `json:"wordCount,omitempty"`
}

// Segment - transcript segment on the wire
type Segment struct {
	ID                  string  `json:"id"`
	Index               int     `json:"index"`
	Start               float64 `json:"start"`
	End                 float64 `json:"end"`
	Text                string  `json:"text"`
	RedactedText        string  `json:"redactedText,omitempty"`
	PatternRedactedText string  `json:"patternRedactedText,omitempty"`
	Speaker             string  `json:"speaker,omitempty"`
}

// Word - word level timestamp on the wire
type Word struct {
	ID        string  `json:"id"`
	SegmentID string  `json:"segmentID"`
	Index     int     `json:"index"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Text      string  `json:"text"`
	Included  bool    `json:"included"`
}

// EditableTranscript - segments with their words for the edit view
type EditableTranscript struct {
	Segments []Segment `json:"segments"`
	Words    []Word    `json:"words"`
}

// RedactRequest - standalone redaction request in JSON
type RedactRequest struct {
	Text       string   `json:"text"`
	Categories []string `json:"categories"`
}

// RedactResult - standalone redaction response in JSON
type RedactResult struct {
	Text            string `json:"text"`
	RedactedText    string `json:"redactedText"`
	EntitiesFound   int    `json:"entitiesFound"`
	PatternsMatched int    `json:"patternsMatched"`
}

// RedactionRerunRequest selects the source text for a pattern only re-run
type RedactionRerunRequest struct {
	Source string `json:"source"`
}

// RedactionRerunResult - pattern re-run response in JSON
type RedactionRerunResult struct {
	ChangedSegments int `json:"changedSegments"`
}

// WordsRequest marks words as kept or dropped
type WordsRequest struct {
	WordIDs  []string `json:"wordIDs"`
	Included *bool    `json:"included"`
}

// WordsResult - word update response in JSON
type WordsResult struct {
	Updated int64 `json:"updated"`
}

// SpeakerRequest renames a speaker across all job segments
type SpeakerRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SpeakerResult - speaker rename response in JSON
type SpeakerResult struct {
	ChangedSegments int `json:"changedSegments"`
}

// SegmentPatch carries a manual segment correction
type SegmentPatch struct {
	Text         *string `json:"text"`
	RedactedText *string `json:"redactedText"`
	Speaker      *string `json:"speaker"`
}

// ErrorResponse - error body in JSON
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusEvent is pushed to websocket subscribers
type StatusEvent struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int32  `json:"progress,omitempty"`
	Step      string `json:"step,omitempty"`
	Error     string `json:"error,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// JobFromRecord maps a stored job to its wire form
func JobFromRecord(job *persistence.Job) Job {
	return Job{ID: job.ID, Name: job.Name, FileName: job.FileName, Model: job.Model,
		Language: job.Language, EnableDiarization: job.EnableDiarization,
		EnableRedaction: job.EnableRedaction, Status: job.Status,
		Progress: job.Progress, CurrentStep: job.CurrentStep,
		ErrorMessage: job.ErrorMessage, ErrorCode: job.ErrorCode,
		CreatedAt: job.CreatedAt, CompletedAt: job.CompletedAt,
		DurationSeconds: job.DurationSeconds, SpeakerCount: job.SpeakerCount,
		SegmentCount: job.SegmentCount, WordCount: job.WordCount}
}

// SegmentFromRecord maps a stored segment to its wire form
func SegmentFromRecord(s *persistence.Segment) Segment {
	return Segment{ID: s.ID, Index: s.Index, Start: s.Start, End: s.End,
		Text: s.Text, RedactedText: s.RedactedText,
		PatternRedactedText: s.PatternRedactedText, Speaker: s.Speaker}
}

// WordFromRecord maps a stored word to its wire form
func WordFromRecord(w *persistence.Word) Word {
	return Word{ID: w.ID, SegmentID: w.SegmentID, Index: w.Index, Start: w.Start,
		End: w.End, Text: w.Text, Included: w.Included}
}
