// Package types provides the core data structures shared across the
// retrieval and memory core: codebase chunks, agent memories, sessions,
// tool usage, query patterns, and predictions.
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Collection suffixes, appended to a project name to form a collection name.
const (
	SuffixCodebase       = "codebase"
	SuffixAgentMemory    = "agent_memory"
	SuffixMemoryPending  = "memory_pending"
	SuffixSessions       = "sessions"
	SuffixToolUsage      = "tool_usage"
	SuffixSearchFeedback = "search_feedback"
	SuffixMemoryFeedback = "memory_feedback"
	SuffixQueryPatterns  = "query_patterns"
	SuffixConfluence     = "confluence"
)

// CollectionName builds a `<project>_<suffix>` collection name.
func CollectionName(project, suffix string) string {
	return project + "_" + suffix
}

// MemoryType enumerates the kinds of memory a record can represent.
type MemoryType string

const (
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeInsight      MemoryType = "insight"
	MemoryTypeContext      MemoryType = "context"
	MemoryTypeTodo         MemoryType = "todo"
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypeNote         MemoryType = "note"
)

// Valid reports whether m is one of the known memory types.
func (m MemoryType) Valid() bool {
	switch m {
	case MemoryTypeDecision, MemoryTypeInsight, MemoryTypeContext, MemoryTypeTodo, MemoryTypeConversation, MemoryTypeNote:
		return true
	}
	return false
}

// MemorySource enumerates where a memory record originated.
type MemorySource string

const (
	SourceManual          MemorySource = "manual"
	SourceAutoConversation MemorySource = "auto_conversation"
	SourceAutoPattern      MemorySource = "auto_pattern"
	SourceAutoFeedback     MemorySource = "auto_feedback"
)

// IsAuto reports whether the source is one of the `auto_*` family.
func (s MemorySource) IsAuto() bool {
	return len(s) > 5 && s[:5] == "auto_"
}

// TodoStatus enumerates the lifecycle states of a todo memory.
type TodoStatus string

const (
	TodoPending    TodoStatus = "pending"
	TodoInProgress TodoStatus = "in_progress"
	TodoDone       TodoStatus = "done"
	TodoCancelled  TodoStatus = "cancelled"
)

// TodoStatusEvent is one entry in a todo's append-only status history.
type TodoStatusEvent struct {
	Status    TodoStatus `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note,omitempty"`
}

// Memory is the shared shape for durable memories and quarantine entries
// (spec.md §3). QuarantineEntry is an alias emphasizing the quarantine
// invariants (Validated=false, Source starting with "auto_").
type Memory struct {
	ID            string                 `json:"id"`
	Type          MemoryType             `json:"type"`
	Content       string                 `json:"content"`
	Tags          []string               `json:"tags,omitempty"`
	RelatedTo     string                 `json:"related_to,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Status        TodoStatus             `json:"status,omitempty"`
	StatusHistory []TodoStatusEvent      `json:"status_history,omitempty"`
	Source        MemorySource           `json:"source"`
	Confidence    *float64               `json:"confidence,omitempty"`
	Validated     bool                   `json:"validated"`
	Embedding     []float64              `json:"-"`
}

// QuarantineEntry is a Memory living in the memory_pending collection.
type QuarantineEntry = Memory

// NewMemory constructs a Memory with a fresh UUID and timestamps, applying
// the todo-specific defaults from spec.md §3.
func NewMemory(content string, memType MemoryType, source MemorySource) (*Memory, error) {
	if content == "" {
		return nil, errors.New("content cannot be empty")
	}
	if !memType.Valid() {
		return nil, fmt.Errorf("invalid memory type: %s", memType)
	}
	now := time.Now().UTC()
	m := &Memory{
		ID:        uuid.New().String(),
		Type:      memType,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Source:    source,
	}
	if memType == MemoryTypeTodo {
		m.Status = TodoPending
		m.StatusHistory = []TodoStatusEvent{{Status: TodoPending, Timestamp: now}}
	}
	return m, nil
}

// AppendStatus appends a new status transition to a todo's history. No
// constraint is placed on the transition itself beyond append-only history.
func (m *Memory) AppendStatus(status TodoStatus, note string) {
	m.Status = status
	m.StatusHistory = append(m.StatusHistory, TodoStatusEvent{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Note:      note,
	})
	m.UpdatedAt = time.Now().UTC()
}

// Validate checks structural invariants of a Memory.
func (m *Memory) Validate() error {
	if m.ID == "" {
		return errors.New("id cannot be empty")
	}
	if m.Content == "" {
		return errors.New("content cannot be empty")
	}
	if !m.Type.Valid() {
		return fmt.Errorf("invalid memory type: %s", m.Type)
	}
	if m.Confidence != nil && (*m.Confidence < 0 || *m.Confidence > 1) {
		return errors.New("confidence must be between 0 and 1")
	}
	return nil
}

// Chunk is a bounded, embedded substring of a source file (spec.md §3).
type Chunk struct {
	ID          string    `json:"id"`
	File        string    `json:"file"`
	Content     string    `json:"content"`
	Language    string    `json:"language,omitempty"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Project     string    `json:"project"`
	IndexedAt   time.Time `json:"indexed_at"`
	FileHash    string    `json:"file_hash"`
	Embedding   []float64 `json:"-"`
}

// SessionStatus enumerates session lifecycle states.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionPaused SessionStatus = "paused"
	SessionEnded  SessionStatus = "ended"
)

// Session is the per-agent-session working context (spec.md §3).
type Session struct {
	SessionID        string                 `json:"session_id"`
	ProjectName      string                 `json:"project_name"`
	StartedAt        time.Time              `json:"started_at"`
	LastActivityAt   time.Time              `json:"last_activity_at"`
	Status           SessionStatus          `json:"status"`
	CurrentFiles     []string               `json:"current_files,omitempty"`
	RecentQueries    []string               `json:"recent_queries,omitempty"`
	ActiveFeatures   []string               `json:"active_features,omitempty"`
	ToolsUsed        map[string]struct{}    `json:"-"`
	ToolsUsedList    []string               `json:"tools_used,omitempty"`
	PendingLearnings []string               `json:"pending_learnings,omitempty"`
	Decisions        []string               `json:"decisions,omitempty"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	EndedAt          *time.Time             `json:"ended_at,omitempty"`
}

const (
	maxCurrentFiles  = 20
	maxRecentQueries = 50
)

// AddCurrentFile appends a file with dedup and a bound of 20, LRU by
// insertion order (spec.md §3, §4.6).
func (s *Session) AddCurrentFile(file string) {
	for i, f := range s.CurrentFiles {
		if f == file {
			s.CurrentFiles = append(s.CurrentFiles[:i], s.CurrentFiles[i+1:]...)
			break
		}
	}
	s.CurrentFiles = append(s.CurrentFiles, file)
	if len(s.CurrentFiles) > maxCurrentFiles {
		s.CurrentFiles = s.CurrentFiles[len(s.CurrentFiles)-maxCurrentFiles:]
	}
}

// AddRecentQuery appends a query bounded to the last 50.
func (s *Session) AddRecentQuery(query string) {
	s.RecentQueries = append(s.RecentQueries, query)
	if len(s.RecentQueries) > maxRecentQueries {
		s.RecentQueries = s.RecentQueries[len(s.RecentQueries)-maxRecentQueries:]
	}
}

// AddToolUsed records a tool name in the session's tool set.
func (s *Session) AddToolUsed(tool string) {
	if s.ToolsUsed == nil {
		s.ToolsUsed = make(map[string]struct{})
	}
	if _, ok := s.ToolsUsed[tool]; ok {
		return
	}
	s.ToolsUsed[tool] = struct{}{}
	s.ToolsUsedList = append(s.ToolsUsedList, tool)
}

// IsStale reports whether an active session has gone quiet past the given
// staleness window (2h per spec.md §3).
func (s *Session) IsStale(now time.Time, window time.Duration) bool {
	return s.Status == SessionActive && now.Sub(s.LastActivityAt) > window
}

// Validate checks the session invariants from spec.md §3.
func (s *Session) Validate() error {
	if s.SessionID == "" {
		return errors.New("session_id cannot be empty")
	}
	if s.LastActivityAt.Before(s.StartedAt) {
		return errors.New("last_activity_at cannot precede started_at")
	}
	return nil
}

// ToolUsage records a single tool invocation (spec.md §3).
type ToolUsage struct {
	ID            string                 `json:"id"`
	ProjectName   string                 `json:"project_name"`
	SessionID     string                 `json:"session_id"`
	ToolName      string                 `json:"tool_name"`
	Timestamp     time.Time              `json:"timestamp"`
	DurationMs    int64                  `json:"duration_ms"`
	InputSummary  string                 `json:"input_summary"`
	ResultCount   int                    `json:"result_count"`
	Success       bool                   `json:"success"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Hour          int                    `json:"hour"`
	DayOfWeek     int                    `json:"day_of_week"`
}

const maxInputSummaryLen = 500

// NewToolUsage builds a ToolUsage, truncating InputSummary to 500 chars and
// deriving Hour/DayOfWeek from Timestamp.
func NewToolUsage(project, sessionID, toolName, inputSummary string) *ToolUsage {
	if len(inputSummary) > maxInputSummaryLen {
		inputSummary = inputSummary[:maxInputSummaryLen]
	}
	now := time.Now().UTC()
	return &ToolUsage{
		ID:           uuid.New().String(),
		ProjectName:  project,
		SessionID:    sessionID,
		ToolName:     toolName,
		Timestamp:    now,
		InputSummary: inputSummary,
		Hour:         now.Hour(),
		DayOfWeek:    int(now.Weekday()),
	}
}

// QueryPattern tracks the success rate of a recognized query/fix pattern
// (spec.md §3).
type QueryPattern struct {
	ID          string  `json:"id"`
	Pattern     string  `json:"pattern"`
	Improvement string  `json:"improvement"`
	SuccessRate float64 `json:"success_rate"`
	UsageCount  int64   `json:"usage_count"`
}

// RecordOutcome updates the running success-rate mean with one more
// wasHelpful event (spec.md §3: "exponentially-correct running mean").
func (qp *QueryPattern) RecordOutcome(wasHelpful bool) {
	outcome := 0.0
	if wasHelpful {
		outcome = 1.0
	}
	qp.UsageCount++
	qp.SuccessRate += (outcome - qp.SuccessRate) / float64(qp.UsageCount)
}

// FileHashEntry is one entry in a FileHashIndex.
type FileHashEntry struct {
	Hash       string    `json:"hash"`
	IndexedAt  time.Time `json:"indexed_at"`
	ChunkCount int       `json:"chunk_count"`
}

// FileHashIndex maps a relative file path to its last-indexed hash state.
type FileHashIndex map[string]FileHashEntry

// CacheStats are the per-session counters described in spec.md §3.
type CacheStats struct {
	L1Hits        int64 `json:"l1_hits"`
	L2Hits        int64 `json:"l2_hits"`
	L3Hits        int64 `json:"l3_hits"`
	Misses        int64 `json:"misses"`
	SearchL1Hits  int64 `json:"search_l1_hits"`
	SearchL2Hits  int64 `json:"search_l2_hits"`
	SearchMisses  int64 `json:"search_misses"`
}

// PredictionType enumerates the kind of resource a Prediction warms.
type PredictionType string

const (
	PredictionFile      PredictionType = "file"
	PredictionQuery     PredictionType = "query"
	PredictionToolInput PredictionType = "tool_input"
	PredictionFeature   PredictionType = "feature"
)

// PredictionStrategy enumerates the strategy that produced a Prediction.
type PredictionStrategy string

const (
	StrategyFileSimilarity  PredictionStrategy = "file_similarity"
	StrategyQueryPattern    PredictionStrategy = "query_pattern"
	StrategyToolChain       PredictionStrategy = "tool_chain"
	StrategyFeatureContext  PredictionStrategy = "feature_context"
)

// Prediction is a single predicted next-resource (spec.md §3).
type Prediction struct {
	Type       PredictionType     `json:"type"`
	Resource   string             `json:"resource"`
	Confidence float64            `json:"confidence"`
	Strategy   PredictionStrategy `json:"strategy"`
	Reason     string             `json:"reason"`
}

// SearchResult pairs a point's score and payload for vector-store results.
type SearchResult struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// MarshalJSON/UnmarshalJSON for the small string-enum types follow the
// teacher's pattern of explicit (de)serialization hooks.

func (m MemoryType) MarshalJSON() ([]byte, error)   { return json.Marshal(string(m)) }
func (m *MemoryType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*m = MemoryType(s)
	return nil
}
