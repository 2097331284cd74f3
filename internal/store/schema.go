package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column names shared by the migrator and the repos.
const (
	tableLLMEvents = "llm_request_events"
	tablePapers    = "papers"
)

var (
	llmEventColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "run_id", Type: field.TypeString, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    llmEventColumns,
		PrimaryKey: []*schema.Column{llmEventColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{llmEventColumns[1]}},
			{Name: "llmrequestevent_model", Columns: []*schema.Column{llmEventColumns[3]}},
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventColumns[4]}},
			{Name: "llmrequestevent_run_id", Columns: []*schema.Column{llmEventColumns[12]}},
		},
	}

	paperColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt64, Increment: true},
		{Name: "run_id", Type: field.TypeString, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "outcome", Type: field.TypeString},
		{Name: "source", Type: field.TypeString, Default: ""},
		{Name: "target_marks", Type: field.TypeInt},
		{Name: "total_marks", Type: field.TypeInt},
		{Name: "question_count", Type: field.TypeInt},
		{Name: "body", Type: field.TypeString, Size: 2147483647},
	}
	papersTable = &schema.Table{
		Name:       tablePapers,
		Columns:    paperColumns,
		PrimaryKey: []*schema.Column{paperColumns[0]},
		Indexes: []*schema.Index{
			{Name: "paper_created_at", Columns: []*schema.Column{paperColumns[2]}},
		},
	}

	// Tables lists every table the migrator creates.
	Tables = []*schema.Table{llmEventsTable, papersTable}
)
