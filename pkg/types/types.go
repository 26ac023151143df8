package types

import "time"

// =============================================================================
// QUERY TYPES
// =============================================================================

// QueryRequest is the input of the mergestat_sql tool
type QueryRequest struct {
	SQL          string `json:"sql" jsonschema:"The MergeStat SQL query to execute (e.g. \"SELECT * FROM commits LIMIT 5\")"`
	RepoPath     string `json:"repoPath,omitempty" jsonschema:"Absolute path to the git repository to query. Defaults to current working directory if not provided."`
	OutputToChat bool   `json:"outputToChat,omitempty" jsonschema:"If true, return the JSON result directly in the response. By default the result is written to a temporary file and the file path is returned, so large result sets do not flood the conversation."`
}

// QueryResult is where a successful query's JSON ended up.
// Exactly one of Inline or Path is set.
type QueryResult struct {
	Inline string `json:"inline,omitempty"`
	Path   string `json:"path,omitempty"`
	Bytes  int    `json:"bytes"`
}

// Text returns what the caller sees: the JSON itself or the file path
func (r *QueryResult) Text() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Inline
}

// =============================================================================
// JOURNAL TYPES
// =============================================================================

// Outcome values recorded for a successful query. Failures record the error kind.
const (
	OutcomeOK = "ok"
)

// HistoryEntry is one executed query in the journal
type HistoryEntry struct {
	ID         string        `json:"id"`
	SQL        string        `json:"sql"`
	RepoPath   string        `json:"repo_path"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Outcome    string        `json:"outcome"` // ok, or the failure kind
	OutputPath string        `json:"output_path,omitempty"`
	Bytes      int           `json:"bytes"`
}
