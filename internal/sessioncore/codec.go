package sessioncore

import (
	"encoding/json"
	"time"

	"ragmemory/pkg/types"
)

// encodeSession/decodeSession (de)serialize a full Session for the
// sess:<sessionID>:context cache entry — an opaque JSON blob, unlike the
// flattened vectorstore payload below which the engine's value-type
// constraints force apart.
func encodeSession(s *types.Session) ([]byte, error) { return json.Marshal(s) }

func decodeSession(raw []byte) (*types.Session, error) {
	var s types.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// sessionToPayload/payloadToSession flatten a Session into the vectorstore's
// string/bool/int64/float64/[]string-only payload value space (see
// internal/vectorstore/convert.go's anyToValue), the same pattern
// internal/memory/codec.go uses for nested Memory fields: metadata is
// JSON-encoded into a string field.
func sessionToPayload(s *types.Session) map[string]any {
	payload := map[string]any{
		"session_id":       s.SessionID,
		"project_name":     s.ProjectName,
		"started_at":       s.StartedAt.Format(time.RFC3339),
		"last_activity_at": s.LastActivityAt.Format(time.RFC3339),
		"status":           string(s.Status),
	}
	if len(s.CurrentFiles) > 0 {
		payload["current_files"] = s.CurrentFiles
	}
	if len(s.RecentQueries) > 0 {
		payload["recent_queries"] = s.RecentQueries
	}
	if len(s.ActiveFeatures) > 0 {
		payload["active_features"] = s.ActiveFeatures
	}
	if len(s.ToolsUsedList) > 0 {
		payload["tools_used"] = s.ToolsUsedList
	}
	if len(s.PendingLearnings) > 0 {
		payload["pending_learnings"] = s.PendingLearnings
	}
	if len(s.Decisions) > 0 {
		payload["decisions"] = s.Decisions
	}
	if s.Metadata != nil {
		if raw, err := json.Marshal(s.Metadata); err == nil {
			payload["metadata_json"] = string(raw)
		}
	}
	if s.EndedAt != nil {
		payload["ended_at"] = s.EndedAt.Format(time.RFC3339)
	}
	return payload
}

func payloadToSession(payload map[string]any) *types.Session {
	s := &types.Session{}
	if v, ok := payload["session_id"].(string); ok {
		s.SessionID = v
	}
	if v, ok := payload["project_name"].(string); ok {
		s.ProjectName = v
	}
	if v, ok := payload["started_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.StartedAt = t
		}
	}
	if v, ok := payload["last_activity_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.LastActivityAt = t
		}
	}
	if v, ok := payload["status"].(string); ok {
		s.Status = types.SessionStatus(v)
	}
	s.CurrentFiles = stringSliceField(payload, "current_files")
	s.RecentQueries = stringSliceField(payload, "recent_queries")
	s.ActiveFeatures = stringSliceField(payload, "active_features")
	s.ToolsUsedList = stringSliceField(payload, "tools_used")
	if len(s.ToolsUsedList) > 0 {
		s.ToolsUsed = make(map[string]struct{}, len(s.ToolsUsedList))
		for _, t := range s.ToolsUsedList {
			s.ToolsUsed[t] = struct{}{}
		}
	}
	s.PendingLearnings = stringSliceField(payload, "pending_learnings")
	s.Decisions = stringSliceField(payload, "decisions")
	if v, ok := payload["metadata_json"].(string); ok && v != "" {
		var md map[string]interface{}
		if err := json.Unmarshal([]byte(v), &md); err == nil {
			s.Metadata = md
		}
	}
	if v, ok := payload["ended_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			s.EndedAt = &t
		}
	}
	return s
}

func stringSliceField(payload map[string]any, field string) []string {
	v, ok := payload[field]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
