package api

import (
	"errors"
	"net/http"

	"ragmemory/internal/di"
	"ragmemory/internal/errtypes"
	"ragmemory/internal/memory"
	"ragmemory/internal/retrieval"
	"ragmemory/internal/sessioncore"
	"ragmemory/pkg/types"

	"github.com/go-chi/chi/v5"
)

type handlers struct {
	c *di.Container
}

// --- indexing (spec.md §4.4) ---

type indexStartRequest struct {
	Project string `json:"project"`
	Path    string `json:"path"`
	Force   bool   `json:"force"`
}

func (h *handlers) indexStart(w http.ResponseWriter, r *http.Request) {
	var req indexStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	go func() {
		if err := h.c.Indexer.Index(r.Context(), req.Project, req.Path, req.Force); err != nil {
			h.c.Logger.Error("api: background index failed", "project", req.Project, "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"project": req.Project, "status": "started"})
}

func (h *handlers) indexStatus(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	writeJSON(w, http.StatusOK, h.c.Indexer.Progress(collection))
}

type reindexRequest struct {
	Alias      string `json:"alias"`
	Collection string `json:"collection"`
}

func (h *handlers) reindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	aliases, err := h.c.VectorStore.ListAliases(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	from := aliases[req.Alias]
	if err := h.c.VectorStore.SwapAlias(r.Context(), req.Alias, from, req.Collection); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"alias": req.Alias, "from": from, "to": req.Collection})
}

func (h *handlers) listAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := h.c.VectorStore.ListAliases(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, aliases)
}

// --- retrieval primitives (spec.md §4.8) ---

type searchRequest struct {
	Collection  string `json:"collection"`
	Query       string `json:"query"`
	Limit       int    `json:"limit"`
	File        string `json:"file"`
	Language    string `json:"language"`
	SessionID   string `json:"sessionId"`
	ProjectName string `json:"projectName"`
}

func (h *handlers) search(w http.ResponseWriter, r *http.Request) {
	h.runHybridSearch(w, r)
}

func (h *handlers) hybridSearch(w http.ResponseWriter, r *http.Request) {
	h.runHybridSearch(w, r)
}

func (h *handlers) runHybridSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := h.c.Retrieval.Search(r.Context(), retrieval.HybridQuery{
		Collection:  req.Collection,
		Query:       req.Query,
		Limit:       req.Limit,
		File:        req.File,
		Language:    req.Language,
		SessionID:   req.SessionID,
		ProjectName: req.ProjectName,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type duplicatesRequest struct {
	Collection string `json:"collection"`
}

func (h *handlers) duplicates(w http.ResponseWriter, r *http.Request) {
	var req duplicatesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	groups, err := h.c.Retrieval.FindDuplicateGroups(r.Context(), req.Collection)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

type clustersRequest struct {
	Collection string   `json:"collection"`
	SeedIDs    []string `json:"seedIds"`
	Limit      int      `json:"limit"`
}

func (h *handlers) clusters(w http.ResponseWriter, r *http.Request) {
	var req clustersRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := h.c.Retrieval.Cluster(r.Context(), req.Collection, req.SeedIDs, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type recommendRequest struct {
	Collection  string   `json:"collection"`
	PositiveIDs []string `json:"positiveIds"`
	NegativeIDs []string `json:"negativeIds"`
	Limit       int      `json:"limit"`
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := h.c.VectorStore.Recommend(r.Context(), req.Collection, req.PositiveIDs, req.NegativeIDs, req.Limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// --- memory governance (spec.md §4.5) ---

type memoryIngestRequest struct {
	Project    string          `json:"project"`
	Content    string          `json:"content"`
	Type       types.MemoryType `json:"type"`
	Tags       []string        `json:"tags"`
	RelatedTo  string          `json:"relatedTo"`
	Source     types.MemorySource `json:"source"`
	Confidence *float64        `json:"confidence"`
}

func (h *handlers) memoryIngest(w http.ResponseWriter, r *http.Request) {
	var req memoryIngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := types.NewMemory(req.Content, req.Type, req.Source)
	if err != nil {
		writeError(w, errtypes.Validation("ingest memory", err))
		return
	}
	m.Tags = req.Tags
	m.RelatedTo = req.RelatedTo
	m.Confidence = req.Confidence

	result, err := h.c.Governance.Ingest(r.Context(), req.Project, m)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type recallDurableRequest struct {
	Project  string          `json:"project"`
	Query    string          `json:"query"`
	Type     types.MemoryType `json:"type"`
	Tags     []string        `json:"tags"`
	Limit    int             `json:"limit"`
	MinScore float32         `json:"minScore"`
}

func (h *handlers) recallDurable(w http.ResponseWriter, r *http.Request) {
	var req recallDurableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	results, err := h.c.Governance.RecallDurable(r.Context(), req.Project, memory.RecallOptions{
		Query:    req.Query,
		Type:     req.Type,
		Tags:     req.Tags,
		Limit:    req.Limit,
		MinScore: req.MinScore,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type promoteRequest struct {
	Project       string   `json:"project"`
	ID            string   `json:"id"`
	Reason        string   `json:"reason"`
	Evidence      string   `json:"evidence"`
	RunGates      bool     `json:"runGates"`
	ProjectPath   string   `json:"projectPath"`
	AffectedFiles []string `json:"affectedFiles"`
}

func (h *handlers) promote(w http.ResponseWriter, r *http.Request) {
	var req promoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.c.Governance.Promote(r.Context(), req.Project, req.ID, req.Reason, req.Evidence, memory.PromoteOptions{
		RunGates:      req.RunGates,
		ProjectPath:   req.ProjectPath,
		AffectedFiles: req.AffectedFiles,
	})
	if err != nil {
		var gf *memory.GateFailure
		if errors.As(err, &gf) {
			writeJSON(w, http.StatusUnprocessableEntity, gf.Report)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) rejectQuarantine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	project := r.URL.Query().Get("project")
	if !h.c.Governance.Reject(r.Context(), project, id) {
		writeError(w, errtypes.NotFound("reject quarantine", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listQuarantine(w http.ResponseWriter, r *http.Request) {
	project := r.URL.Query().Get("project")
	entries, err := h.c.Governance.ListQuarantine(r.Context(), project)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- session lifecycle (spec.md §4.6) ---

type sessionStartRequest struct {
	Project        string `json:"project"`
	SessionID      string `json:"sessionId"`
	ResumeFrom     string `json:"resumeFrom"`
	InitialContext string `json:"initialContext"`
}

func (h *handlers) sessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	result, err := h.c.Session.StartSession(r.Context(), sessioncore.StartOptions{
		Project:        req.Project,
		SessionID:      req.SessionID,
		ResumeFrom:     req.ResumeFrom,
		InitialContext: req.InitialContext,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

type sessionEndRequest struct {
	Project           string `json:"project"`
	AutoSaveLearnings bool   `json:"autoSaveLearnings"`
	Feedback          string `json:"feedback"`
	Summary           string `json:"summary"`
}

func (h *handlers) sessionEnd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sessionEndRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s, err := h.c.Session.EndSession(r.Context(), req.Project, id, sessioncore.EndOptions{
		AutoSaveLearnings: req.AutoSaveLearnings,
		Feedback:          req.Feedback,
		Summary:           req.Summary,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type sessionActivityRequest struct {
	Project string                    `json:"project"`
	Type    sessioncore.ActivityType  `json:"type"`
	Value   string                    `json:"value"`
}

func (h *handlers) sessionActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sessionActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.c.Session.AddActivity(r.Context(), req.Project, id, req.Type, req.Value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- cache operations (spec.md §4.2) ---

type cacheWarmRequest struct {
	SessionID     string   `json:"sessionId"`
	PrevSessionID string   `json:"prevSessionId"`
	RecentQueries []string `json:"recentQueries"`
	ProjectName   string   `json:"projectName"`
}

func (h *handlers) cacheWarm(w http.ResponseWriter, r *http.Request) {
	var req cacheWarmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.c.Cache.WarmSession(r.Context(), req.SessionID, req.PrevSessionID, req.RecentQueries, req.ProjectName)
	w.WriteHeader(http.StatusNoContent)
}

type cachePruneRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *handlers) cachePrune(w http.ResponseWriter, r *http.Request) {
	var req cachePruneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.c.Cache.ClearSession(r.Context(), req.SessionID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) sessionCacheStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	stats, err := h.c.Cache.GetStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
