package store

import (
	"context"
	"encoding/json"
	"time"
)

// QueryOpts filters and pages event queries.
type QueryOpts struct {
	Limit   int    // max results (0 = unlimited)
	Purpose string // exact purpose match when set
	RunID   string // calls made by one pipeline run
	Failed  bool   // only failed calls
	After   int64  // id > After
	From    time.Time
	To      time.Time
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string

	// RunID is the pipeline run that made the call, if any.
	RunID string
}

// LLMRequestEvent is a stored LLM call.
type LLMRequestEvent struct {
	ID        int64
	Timestamp time.Time
	LLMRequestEventData
}

// UsageRow aggregates LLM calls sharing a purpose or a model.
type UsageRow struct {
	Key          string
	Calls        int
	Failures     int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

// EventRepo records and reads LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns ErrNotFound for an unknown id.
	GetLLMEvent(ctx context.Context, id int64) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]UsageRow, error)
	LLMUsageByModel(ctx context.Context) ([]UsageRow, error)
}

// PaperRecord is one pipeline run's exported paper or diagnostic.
type PaperRecord struct {
	RunID         string
	CreatedAt     time.Time
	Outcome       string
	Source        string
	TargetMarks   int
	TotalMarks    int
	QuestionCount int

	// Body is the exported paper JSON. List leaves it empty.
	Body json.RawMessage
}

// PaperRepo stores assembled papers by run ID.
type PaperRepo interface {
	Save(ctx context.Context, rec *PaperRecord) error

	// List returns summaries newest first.
	List(ctx context.Context, limit int) ([]PaperRecord, error)

	// Get returns ErrNotFound for an unknown run ID.
	Get(ctx context.Context, runID string) (*PaperRecord, error)

	// Prune deletes all but the keep most recent papers.
	Prune(ctx context.Context, keep int) error
}
