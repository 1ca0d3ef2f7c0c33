// Package stream serves sampled fields over websockets. A client sends the
// text of a scene program; the server answers with one binary message per
// grid, each a snappy-compressed field frame, followed by a JSON "done"
// message. Failures are reported as a JSON "error" message and the
// connection stays open.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/chazu/sigfield/pkg/export"
	"github.com/chazu/sigfield/pkg/grid"
	"github.com/chazu/sigfield/pkg/scene"
	"github.com/gorilla/websocket"
)

// DefaultResolution is the planar resolution used for scenes that declare
// no grids.
const DefaultResolution = 128

// MaxMessageSize caps the size of an incoming scene program.
const MaxMessageSize = 1 << 20

const writeWait = 10 * time.Second

// Message is the JSON control message sent as a text frame.
type Message struct {
	Type     string            `json:"type"` // "error" or "done"
	Errors   []scene.EvalError `json:"errors,omitempty"`
	Message  string            `json:"message,omitempty"`
	Warnings []string          `json:"warnings,omitempty"`
	Frames   int               `json:"frames,omitempty"`
}

// Server is an http.Handler that upgrades requests to websockets.
type Server struct {
	Sampler    *grid.Sampler
	Resolution int

	upgrader websocket.Upgrader
}

// NewServer returns a server that samples with s. A nil sampler uses one
// worker per CPU.
func NewServer(s *grid.Sampler) *Server {
	if s == nil {
		s = grid.NewSampler(0)
	}
	return &Server{
		Sampler:    s,
		Resolution: DefaultResolution,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// One engine per connection: a newer program from this client
	// supersedes an older one, other clients are unaffected.
	eng := scene.NewEngine()
	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("read error from %s: %v", r.RemoteAddr, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			if err := s.writeJSON(conn, Message{Type: "error", Message: "scene programs must be sent as text"}); err != nil {
				return
			}
			continue
		}
		if err := s.handle(ctx, conn, eng, string(msg)); err != nil {
			log.Printf("write error to %s: %v", r.RemoteAddr, err)
			return
		}
	}
}

// handle evaluates one program and writes its replies. The returned error
// is a connection failure; scene failures are reported to the client.
func (s *Server) handle(ctx context.Context, conn *websocket.Conn, eng *scene.Engine, src string) error {
	d, evalErrors, err := eng.Evaluate(src)
	if err != nil {
		return s.writeJSON(conn, Message{Type: "error", Message: err.Error()})
	}
	if len(evalErrors) > 0 {
		return s.writeJSON(conn, Message{Type: "error", Errors: evalErrors, Message: "scene program failed"})
	}

	res := scene.Validate(d)
	if !res.OK() {
		return s.writeJSON(conn, Message{Type: "error", Message: res.Err().Error()})
	}
	ev, err := d.Evaluator()
	if err != nil {
		return s.writeJSON(conn, Message{Type: "error", Message: err.Error()})
	}

	frames := 0
	for _, spec := range d.Targets(s.Resolution) {
		f, err := s.Sampler.Sample(ctx, spec, ev)
		if err != nil {
			return s.writeJSON(conn, Message{Type: "error", Message: err.Error()})
		}
		data, err := export.EncodeSnappy(export.Frame{Field: f, IndexMode: d.Config.IndexMode})
		if err != nil {
			return s.writeJSON(conn, Message{Type: "error", Message: err.Error()})
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return err
		}
		frames++
	}

	done := Message{Type: "done", Frames: frames}
	for _, w := range res.Warnings {
		done.Warnings = append(done.Warnings, w.String())
	}
	return s.writeJSON(conn, done)
}

func (s *Server) writeJSON(conn *websocket.Conn, m Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// ListenAndServe serves s at path on addr until the server fails.
func ListenAndServe(addr, path string, s *Server) error {
	mux := http.NewServeMux()
	mux.Handle(path, s)
	log.Printf("sigfield streaming on ws://%s%s", addr, path)
	return http.ListenAndServe(addr, mux)
}
