// Package web serves the operator front end: a WebSocket that feeds operator input to the
// control loop and a JSON status endpoint.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"goji.io"
	"goji.io/pat"
	goutils "go.viam.com/utils"
	"golang.org/x/time/rate"

	"go.viam.com/armteleop/control"
	"go.viam.com/armteleop/intent"
	"go.viam.com/armteleop/logging"
)

const (
	// maxMessageSize bounds a single WebSocket frame from the browser.
	maxMessageSize    = 512
	readHeaderTimeout = 5 * time.Second

	// Jobs per second accepted from one operator connection. Joystick frames are not limited.
	jobRate  = 20
	jobBurst = 20
)

// errJobRate is returned for jobs arriving faster than jobRate.
var errJobRate = errors.New("job rate limit exceeded")

// Options wires the server to the intent source in use. Exactly one of Joystick and Jobs is set.
type Options struct {
	Joystick *intent.Joystick
	Jobs     *intent.JobQueue
	// Status reports the control loop state. It may be nil before the loop exists.
	Status func() control.Status
}

// Server is the operator facing HTTP server.
type Server struct {
	opts     Options
	logger   logging.Logger
	upgrader websocket.Upgrader
}

// NewServer returns a server that feeds the given intent source.
func NewServer(opts Options, logger logging.Logger) (*Server, error) {
	if (opts.Joystick == nil) == (opts.Jobs == nil) {
		return nil, errors.New("exactly one of joystick and job queue must be set")
	}
	return &Server{
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are handled the same way as for the rest of the API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}, nil
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/ws"), s.handleWebSocket)
	mux.HandleFunc(pat.Get("/status"), s.handleStatus)
	return cors.AllowAll().Handler(mux)
}

// Serve serves HTTP on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	stopped := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(stopped)
		<-ctx.Done()
		if err := httpServer.Shutdown(context.Background()); err != nil {
			s.logger.Errorw("error shutting down", "error", err)
		}
	})

	s.logger.Infow("serving", "url", "http://"+listener.Addr().String())
	err := httpServer.Serve(listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "serving http")
	}
	<-stopped
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		http.Error(w, "control loop not started", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(s.opts.Status()); err != nil {
		s.logger.Debugw("error writing status", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("error upgrading websocket", "error", err)
		return
	}
	logger := s.logger.Sublogger("ws")
	connID := uuid.New().String()
	logger.Infow("operator connected", "conn", connID, "remote", r.RemoteAddr)
	defer func() {
		goutils.UncheckedError(ws.Close())
		if s.opts.Joystick != nil {
			// Nobody is holding the stick any more.
			s.opts.Joystick.Update(0, 0)
		}
		logger.Infow("operator disconnected", "conn", connID)
	}()

	limiter := rate.NewLimiter(jobRate, jobBurst)
	ws.SetReadLimit(maxMessageSize)
	for {
		msgType, msg, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnw("error reading from operator socket", "conn", connID, "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		if err := s.handleMessage(msg, limiter); err != nil {
			logger.Warnw("ignoring operator message", "conn", connID, "message", string(msg), "error", err)
		}
	}
}

// handleMessage routes one frame. JSON objects are jobs; anything else is a "<deg>#<dist>"
// joystick frame.
func (s *Server) handleMessage(msg []byte, limiter *rate.Limiter) error {
	if strings.HasPrefix(strings.TrimSpace(string(msg)), "{") {
		if !limiter.Allow() {
			return errJobRate
		}
		return s.handleJob(msg)
	}
	if s.opts.Joystick == nil {
		return errors.New("joystick input is not enabled")
	}
	angle, magnitude, err := intent.ParseJoystickFrame(string(msg))
	if err != nil {
		return err
	}
	s.opts.Joystick.Update(angle, magnitude)
	return nil
}

func (s *Server) handleJob(msg []byte) error {
	if s.opts.Jobs != nil {
		// Jobs are validated when the control loop runs them.
		return s.opts.Jobs.Enqueue(msg)
	}
	in, err := intent.ParseJob(msg)
	if err != nil {
		return err
	}
	if in.Kind != intent.KindGrip {
		return errors.Errorf("%s jobs need the job queue", in.Kind)
	}
	s.opts.Joystick.SetGrabbing(in.Grabbing)
	return nil
}
