package memory

import (
	"encoding/json"
	"time"

	"ragmemory/pkg/types"
)

// memoryToPayload flattens a Memory into the flat string/bool/number/
// []string shape the vector engine's payload accepts; Metadata and
// StatusHistory (nested structures) are JSON-encoded into string fields
// since the engine has no nested-object payload type. "id" is duplicated
// into the payload (alongside the point's own ID) so Scroll+filter lookups
// by id are possible — the Filter contract only matches payload fields.
func memoryToPayload(m *types.Memory) map[string]any {
	payload := map[string]any{
		"id":         m.ID,
		"type":       string(m.Type),
		"content":    m.Content,
		"source":     string(m.Source),
		"validated":  m.Validated,
		"created_at": m.CreatedAt.Format(time.RFC3339),
		"updated_at": m.UpdatedAt.Format(time.RFC3339),
	}
	if len(m.Tags) > 0 {
		payload["tags"] = m.Tags
	}
	if m.RelatedTo != "" {
		payload["related_to"] = m.RelatedTo
	}
	if m.Confidence != nil {
		payload["confidence"] = *m.Confidence
	}
	if m.Status != "" {
		payload["status"] = string(m.Status)
	}
	if len(m.Metadata) > 0 {
		if b, err := json.Marshal(m.Metadata); err == nil {
			payload["metadata_json"] = string(b)
		}
	}
	if len(m.StatusHistory) > 0 {
		if b, err := json.Marshal(m.StatusHistory); err == nil {
			payload["status_history_json"] = string(b)
		}
	}
	return payload
}

// ToPayload and FromPayload expose the flattening codec to collaborators
// outside this package (internal/sessioncore's auto-merge re-packs already-
// durable memories using the same payload shape).
func ToPayload(m *types.Memory) map[string]any               { return memoryToPayload(m) }
func FromPayload(id string, payload map[string]any) *types.Memory { return payloadToMemory(id, payload) }

// payloadToMemory reverses memoryToPayload. id is the point's own ID,
// authoritative over any (redundant) "id" payload field.
func payloadToMemory(id string, payload map[string]any) *types.Memory {
	m := &types.Memory{ID: id}
	if v, ok := payload["type"].(string); ok {
		m.Type = types.MemoryType(v)
	}
	if v, ok := payload["content"].(string); ok {
		m.Content = v
	}
	if v, ok := payload["source"].(string); ok {
		m.Source = types.MemorySource(v)
	}
	if v, ok := payload["validated"].(bool); ok {
		m.Validated = v
	}
	if v, ok := payload["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.CreatedAt = t
		}
	}
	if v, ok := payload["updated_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.UpdatedAt = t
		}
	}
	if v, ok := payload["tags"].([]string); ok {
		m.Tags = v
	}
	if v, ok := payload["related_to"].(string); ok {
		m.RelatedTo = v
	}
	if v, ok := payload["confidence"].(float64); ok {
		c := v
		m.Confidence = &c
	}
	if v, ok := payload["status"].(string); ok {
		m.Status = types.TodoStatus(v)
	}
	if v, ok := payload["metadata_json"].(string); ok {
		var md map[string]interface{}
		if json.Unmarshal([]byte(v), &md) == nil {
			m.Metadata = md
		}
	}
	if v, ok := payload["status_history_json"].(string); ok {
		var h []types.TodoStatusEvent
		if json.Unmarshal([]byte(v), &h) == nil {
			m.StatusHistory = h
		}
	}
	return m
}
