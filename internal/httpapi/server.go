// Package httpapi exposes the investigation bridge over HTTP (spec §6.3):
// start an investigation, poll its status, list recent runs, and export a
// publication-scrubbed report. Progress streaming lives in internal/wsapi;
// this package only hands the websocket layer an investigation id to
// subscribe against.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightframe/investigator/internal/agentloop"
	"github.com/brightframe/investigator/internal/bridge"
	"github.com/brightframe/investigator/internal/fanout"
)

// Server wires the bridge, the progress bus, and an investigation store
// into gin handlers.
type Server struct {
	newLoop bridge.LoopFactory
	br      *bridge.Bridge
	bus     *fanout.Bus
	store   Store
	metrics *Metrics
}

// NewServer constructs a Server. newLoop builds a fresh Loop per
// investigation (see bridge.LoopFactory); bus receives progress events
// under the record id that createInvestigation assigns and returns, not the
// session's own internal id, so callers can subscribe with the id from the
// create response.
func NewServer(newLoop bridge.LoopFactory, bus *fanout.Bus, store Store) *Server {
	return &Server{
		newLoop: newLoop,
		br:      bridge.New(newLoop),
		bus:     bus,
		store:   store,
		metrics: GetMetrics(),
	}
}

// Register mounts the investigation routes on r.
func (s *Server) Register(r *gin.Engine) {
	api := r.Group("/api")
	api.POST("/investigations", s.createInvestigation)
	api.GET("/investigations", s.listInvestigations)
	api.GET("/investigations/:id", s.getInvestigation)
	api.POST("/investigations/:id/export", s.exportInvestigation)
	r.GET("/health", s.health)
}

type createInvestigationRequest struct {
	Goal          string `json:"goal" binding:"required"`
	ChannelID     string `json:"channel_id"`
	MaxTurns      *int   `json:"max_turns"`
	LLMProvider   string `json:"llm_provider"`
	AutoSanctions *bool  `json:"auto_sanctions"`
	AutoNews      *bool  `json:"auto_news"`
	DryRun        bool   `json:"dry_run"`
}

func (r createInvestigationRequest) runOptions() bridge.RunOptions {
	return bridge.RunOptions{
		MaxTurns:      r.MaxTurns,
		LLMProvider:   r.LLMProvider,
		AutoSanctions: r.AutoSanctions,
		AutoNews:      r.AutoNews,
		DryRun:        r.DryRun,
	}
}

type createInvestigationResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

// createInvestigation handles POST /api/investigations. The run executes
// in the background; the caller polls getInvestigation or subscribes to
// the websocket surface using the returned id.
func (s *Server) createInvestigation(c *gin.Context) {
	var req createInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.RecordRequest("create_investigation", "400")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := uuid.NewString()
	rec := &Record{
		ID:        id,
		Goal:      req.Goal,
		ChannelID: req.ChannelID,
		Status:    StatusRunning,
		CreatedAt: time.Now().UTC(),
		Opts:      req.runOptions(),
	}
	s.store.Put(rec)

	go s.run(context.Background(), rec)

	s.metrics.RecordRequest("create_investigation", "202")
	c.JSON(http.StatusAccepted, createInvestigationResponse{ID: id, Status: StatusRunning})
}

// run drives one investigation to completion, relaying progress onto the
// bus under rec.ID and updating the store with the final result.
func (s *Server) run(ctx context.Context, rec *Record) {
	sink := &relaySink{recordID: rec.ID, bus: s.bus}
	result := s.br.RunInvestigationWithOptions(ctx, rec.Goal, sink, rec.Opts)

	rec.Session = result.Session
	rec.Result = result
	if result.Error != "" {
		rec.Status = StatusFailed
		s.metrics.RecordOutcome("failed")
	} else {
		rec.Status = StatusCompleted
		s.metrics.RecordOutcome("completed")
	}
	s.store.Put(rec)
}

func (s *Server) getInvestigation(c *gin.Context) {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		s.metrics.RecordRequest("get_investigation", "404")
		c.JSON(http.StatusNotFound, gin.H{"error": "investigation not found"})
		return
	}
	s.metrics.RecordRequest("get_investigation", "200")
	c.JSON(http.StatusOK, recordView(rec))
}

func (s *Server) listInvestigations(c *gin.Context) {
	recs := s.store.List()
	views := make([]gin.H, 0, len(recs))
	for _, rec := range recs {
		views = append(views, recordView(rec))
	}
	s.metrics.RecordRequest("list_investigations", "200")
	c.JSON(http.StatusOK, gin.H{"investigations": views})
}

// exportInvestigation handles POST /api/investigations/:id/export, returning
// the publication-scrubbed report text the bridge already produced. Export
// never re-runs scrubbing against raw fields — it only ever serves text the
// safety harness already cleared.
func (s *Server) exportInvestigation(c *gin.Context) {
	id := c.Param("id")
	rec, ok := s.store.Get(id)
	if !ok {
		s.metrics.RecordRequest("export_investigation", "404")
		c.JSON(http.StatusNotFound, gin.H{"error": "investigation not found"})
		return
	}
	if rec.Status == StatusRunning {
		s.metrics.RecordRequest("export_investigation", "409")
		c.JSON(http.StatusConflict, gin.H{"error": "investigation still running"})
		return
	}

	s.metrics.RecordRequest("export_investigation", "200")
	c.JSON(http.StatusOK, gin.H{
		"id":             rec.ID,
		"report":         rec.Result.ScrubbedReportText,
		"pii_redactions": rec.Result.PIIScrubbed,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func recordView(rec *Record) gin.H {
	view := gin.H{
		"id":         rec.ID,
		"goal":       rec.Goal,
		"channel_id": rec.ChannelID,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
	}
	if rec.Session != nil {
		view["summary"] = rec.Session.Summary()
	}
	if rec.Status != StatusRunning {
		view["error"] = rec.Result.Error
	}
	return view
}

// relaySink forwards progress events onto bus under a caller-assigned
// record id rather than the session's own internally generated id, so a
// subscriber can attach before the underlying session exists.
type relaySink struct {
	recordID string
	bus      *fanout.Bus
}

func (r *relaySink) Emit(e agentloop.ProgressEvent) {
	e.InvestigationID = r.recordID
	r.bus.Emit(e)
}
