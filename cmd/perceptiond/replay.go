package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-cockpit/internal/config"
	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/perception"
	"github.com/teslashibe/go-cockpit/pkg/protocol"
)

const (
	// replayPongWait bounds the wait for the server to finish the recording.
	replayPongWait = 5 * time.Second
	// replayDrain is how long trailing replies may take after the close frame.
	replayDrain = 500 * time.Millisecond
)

type replayStats struct {
	Frames int
	Events int
}

func newReplayCmd(root *rootOptions) *cobra.Command {
	var (
		file   string
		remote string
	)

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a JSON-lines recording of observations",
		Long: `Replay reads one observation payload per line ({"ts_ms":..., "rotation":...,
"face":..., "hand":..., "gesture":...}) and prints each non-empty event
batch as a JSON line. Blank lines and lines starting with # are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open recording: %w", err)
			}
			defer f.Close()

			var stats replayStats
			if remote != "" {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				stats, err = replayRemote(ctx, remote, f, cmd.OutOrStdout())
			} else {
				cfg, cerr := config.LoadPerception(root.configPath)
				if cerr != nil {
					return cerr
				}
				stats, err = replayLocal(cfg, f, cmd.OutOrStdout())
			}
			if err != nil {
				return err
			}
			log.Info("replay finished", "frames", stats.Frames, "events", stats.Events)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "recording to replay (required)")
	cmd.Flags().StringVar(&remote, "remote", "", "stream to a server session endpoint instead of processing locally")
	cmd.MarkFlagRequired("file")
	return cmd
}

// readObservations calls fn for every observation in a JSON-lines recording.
func readObservations(r io.Reader, fn func(protocol.ObservationData) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}
		var obs protocol.ObservationData
		if err := json.Unmarshal(text, &obs); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := obs.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(obs); err != nil {
			return err
		}
	}
	return sc.Err()
}

func replayLocal(cfg perception.Config, r io.Reader, w io.Writer) (replayStats, error) {
	var stats replayStats
	sess, err := perception.NewSession(cfg)
	if err != nil {
		return stats, err
	}

	enc := json.NewEncoder(w)
	err = readObservations(r, func(obs protocol.ObservationData) error {
		stats.Frames++
		batch := sess.Process(obs.Observation())
		if batch.Empty() {
			return nil
		}
		stats.Events += len(batch.Events)
		return enc.Encode(batch)
	})
	return stats, err
}

func replayRemote(ctx context.Context, url string, r io.Reader, w io.Writer) (replayStats, error) {
	var stats replayStats
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return stats, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	// Reader: print event batches until the connection closes.
	events := make(chan int, 1)
	pong := make(chan struct{}, 1)
	go func() {
		total := 0
		enc := json.NewEncoder(w)
		defer func() { events <- total }()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := protocol.ParseMessage(data)
			if err != nil {
				continue
			}
			switch msg.Type {
			case protocol.TypeEvents:
				batch, err := msg.GetEvents()
				if err != nil {
					continue
				}
				total += len(batch.Events)
				enc.Encode(batch)
			case protocol.TypeError:
				if e, err := msg.GetErrorData(); err == nil {
					log.Warn("server rejected observation", "error", e.Message)
				}
			case protocol.TypePong:
				select {
				case pong <- struct{}{}:
				default:
				}
			case protocol.TypeSession:
				if s, err := msg.GetSessionData(); err == nil {
					log.Info("remote session", "id", s.ID, "user", s.User)
				}
			}
		}
	}()

	err = readObservations(r, func(obs protocol.ObservationData) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := protocol.NewObservationMessage(obs)
		if err != nil {
			return err
		}
		data, err := msg.Bytes()
		if err != nil {
			return err
		}
		stats.Frames++
		return conn.WriteMessage(websocket.TextMessage, data)
	})
	if err != nil {
		return stats, err
	}

	// Messages are handled in order, so the pong follows the last batch.
	ping, err := protocol.NewPingMessage("replay")
	if err != nil {
		return stats, err
	}
	data, err := ping.Bytes()
	if err != nil {
		return stats, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return stats, fmt.Errorf("send ping: %w", err)
	}
	select {
	case <-pong:
	case <-time.After(replayPongWait):
		log.Warn("no pong from server, events may be incomplete")
	case <-ctx.Done():
	}

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.SetReadDeadline(time.Now().Add(replayDrain))

	stats.Events = <-events
	return stats, nil
}
