package web

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/hub"
	"github.com/teslashibe/go-cockpit/pkg/perception"
	"github.com/teslashibe/go-cockpit/pkg/protocol"
)

const (
	defaultUser    = "anonymous"
	journalTimeout = 2 * time.Second
)

// handleSessionWS owns one perception session for the life of the connection
func (s *Server) handleSessionWS(c *websocket.Conn) {
	user := c.Query("user", defaultUser)

	var opts []perception.Option
	if s.refiner != nil {
		opts = append(opts, perception.WithPupilRefiner(s.refiner))
	}
	ls, err := s.sessions.create(s.Config(), user, opts...)
	if err != nil {
		log.Error("create session failed", "user", user, "error", err)
		c.Close()
		return
	}
	defer s.sessions.remove(ls.id)

	logger := log.Session(ls.id, user)
	logger.Info("session opened")

	client := hub.NewClient(s.sessionHub, c, func(cl *hub.Client, data []byte) {
		if out := s.handleSessionMessage(ls, data); out != nil {
			if m, err := hub.FromProtocol(out); err == nil {
				cl.Send(m)
			}
		}
	})
	if hello := reply(protocol.NewSessionMessage(ls.id, user)); hello != nil {
		if m, err := hub.FromProtocol(hello); err == nil {
			client.Send(m)
		}
	}
	client.Run()

	info := ls.info()
	logger.Info("session closed", "frames", info.Frames, "events", info.Events)
}

// handleEventsWS subscribes a client to every session's events
func (s *Server) handleEventsWS(c *websocket.Conn) {
	hub.NewClient(s.eventHub, c, nil).Run()
}

// handleSessionMessage processes one inbound message in arrival order and
// returns the reply for the sender, if any.
func (s *Server) handleSessionMessage(ls *liveSession, data []byte) *protocol.Message {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.rejected.Add(1)
		return errorReply(err)
	}

	switch msg.Type {
	case protocol.TypeObservation:
		obsData, err := msg.GetObservationData()
		if err != nil {
			s.rejected.Add(1)
			return errorReply(err)
		}
		if err := obsData.Validate(); err != nil {
			s.rejected.Add(1)
			return errorReply(err)
		}
		s.frames.Add(1)

		batch := ls.process(obsData.Observation())
		if batch.Empty() {
			return nil
		}
		s.publish(ls, batch)
		return reply(protocol.NewEventsMessage(batch))

	case protocol.TypeReset:
		ls.reset()
		log.Session(ls.id, ls.user).Debug("session reset by client")
		return nil

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return errorReply(err)
		}
		return reply(protocol.NewPongMessage(ping.ID, ping.Timestamp, time.Now().UnixMilli()))

	default:
		s.rejected.Add(1)
		return reply(protocol.NewMessage(protocol.TypeError, protocol.ErrorData{
			Message: "unsupported message type: " + string(msg.Type),
		}))
	}
}

// publish fans a batch out to subscribers and the journal
func (s *Server) publish(ls *liveSession, batch perception.EventBatch) {
	s.counts.add(batch)

	logger := log.Session(ls.id, ls.user)
	for _, ev := range batch.Events {
		logger.Debug("event", "kind", ev.Kind(), "ts_ms", batch.Timestamp.Milliseconds())
	}

	if msg, err := protocol.NewSessionEventsMessage(ls.id, ls.user, batch); err == nil {
		if err := s.eventHub.BroadcastProtocol(msg); err != nil {
			logger.Warn("broadcast events failed", "error", err)
		}
	}

	if s.journal != nil {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := s.journal.Record(ctx, ls.id, ls.user, batch); err != nil {
			logger.Warn("journal record failed", "error", err)
		}
	}
}

func errorReply(err error) *protocol.Message {
	return reply(protocol.NewErrorMessage(err))
}

// reply drops messages that failed to encode.
func reply(msg *protocol.Message, err error) *protocol.Message {
	if err != nil {
		log.Warn("encode reply failed", "error", err)
		return nil
	}
	return msg
}
