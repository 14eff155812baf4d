package web

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/journal"
	"github.com/teslashibe/go-cockpit/pkg/perception"
	"github.com/teslashibe/go-cockpit/pkg/protocol"
)

// Status is the /api/status response
type Status struct {
	UptimeSeconds float64                         `json:"uptime_s"`
	Sessions      int                             `json:"sessions"`
	Subscribers   int                             `json:"subscribers"`
	Frames        uint64                          `json:"frames"`
	Rejected      uint64                          `json:"rejected"`
	Events        uint64                          `json:"events"`
	EventsByKind  map[perception.EventKind]uint64 `json:"events_by_kind"`
	Journal       bool                            `json:"journal"`
}

// handleStatus returns server counters
func (s *Server) handleStatus(c *fiber.Ctx) error {
	byKind, total := s.counts.snapshot()
	return c.JSON(Status{
		UptimeSeconds: time.Since(s.started).Seconds(),
		Sessions:      s.sessions.Len(),
		Subscribers:   s.eventHub.ClientCount(),
		Frames:        s.frames.Load(),
		Rejected:      s.rejected.Load(),
		Events:        total,
		EventsByKind:  byKind,
		Journal:       s.journal != nil,
	})
}

// handleListSessions returns active sessions
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	return c.JSON(s.sessions.List())
}

// handleResetSession re-arms a session's debounce state
func (s *Server) handleResetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	ls, ok := s.sessions.get(id)
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	ls.reset()
	log.Session(ls.id, ls.user).Info("session reset via api")
	return c.JSON(fiber.Map{
		"id":    id,
		"reset": true,
	})
}

// handleSessionGaze returns a session's latest gaze state
func (s *Server) handleSessionGaze(c *fiber.Ctx) error {
	ls, ok := s.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "session not found",
		})
	}
	msg, err := protocol.NewGazeMessage(ls.gaze(), 0)
	if err != nil {
		return err
	}
	data, err := msg.GetGazeData()
	if err != nil {
		return err
	}
	return c.JSON(data)
}

// handleGetConfig returns the config applied to new sessions
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return c.JSON(s.Config())
}

// handlePutConfig overlays the request body on the current config.
// Existing sessions keep the config they were created with.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	cfg := s.Config()
	if err := json.Unmarshal(c.Body(), &cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid json: " + err.Error(),
		})
	}

	if err := s.SetConfig(cfg); err != nil {
		resp := fiber.Map{"error": err.Error()}
		var cerr *perception.ConfigError
		if errors.As(err, &cerr) {
			resp["field"] = cerr.Field
		}
		return c.Status(fiber.StatusBadRequest).JSON(resp)
	}
	return c.JSON(cfg)
}

// handleHistory returns a user's most recent journaled events
func (s *Server) handleHistory(c *fiber.Ctx) error {
	if s.journal == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "journal disabled",
		})
	}
	entries, err := s.journal.Recent(c.UserContext(), c.Params("user"), c.QueryInt("limit", 0))
	if err != nil {
		log.Error("journal query failed", "user", c.Params("user"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	return c.JSON(entries)
}
