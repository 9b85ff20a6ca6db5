package types

import "time"

// Run records one generation run.
type Run struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Title          string    `json:"title"`
	Version        string    `json:"version"`
	OperationCount int       `json:"operation_count"`
	DegradedCount  int       `json:"degraded_count"`
	Status         string    `json:"status"`
	ErrorMsg       string    `json:"error_msg,omitempty"`
	Enums          []EnumDoc `json:"enums,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OperationRecord is one documented HTTP method as persisted for a run.
type OperationRecord struct {
	ID         int64      `json:"id"`
	RunID      string     `json:"run_id"`
	Seq        int        `json:"seq"`
	Controller string     `json:"controller"`
	BaseURI    string     `json:"base_uri"`
	CtrlDoc    string     `json:"controller_doc,omitempty"`
	URI        string     `json:"uri"`
	Method     string     `json:"method"`
	Name       string     `json:"name"`
	Doc        HTTPMethod `json:"doc"`
	Degraded   bool       `json:"degraded"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ExampleCache stores one refined example keyed by its skeleton hash.
type ExampleCache struct {
	Key        string    `json:"key"`
	Generator  string    `json:"generator"`
	Status     string    `json:"status"`
	Output     string    `json:"output"`
	Model      string    `json:"model"`
	TokensUsed int       `json:"tokens_used"`
	ErrorMsg   string    `json:"error_msg"`
	CreatedAt  time.Time `json:"created_at"`
}
