// Package render serves the operator's view of the rover over HTTP: the latest frames, a status
// document and the controls for autonomy and overlay rendering.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"image"
	"image/jpeg"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/cors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"goji.io"
	"goji.io/pat"

	"github.com/e2e-ad/rover/hub"
	"github.com/e2e-ad/rover/logging"
	"github.com/e2e-ad/rover/navigation"
	"github.com/e2e-ad/rover/sensordata"
	"github.com/e2e-ad/rover/utils"
)

const jpegQuality = 80

// Autonomy is the part of the navigator the control surface drives.
type Autonomy interface {
	// Toggle flips autonomy. Turning it off sends a stop command before returning.
	Toggle(ctx context.Context) (bool, error)
	Enabled() bool
	LastCommand() (sensordata.Command, bool)
	Stats() navigation.Stats
}

// Options configures a Server.
type Options struct {
	Address string
	// Enriched starts with annotated frames shown when available.
	Enriched bool
	Pprof    bool
	// Modules lists the pipeline's modules for the status document.
	Modules []string
}

// Server is the HTTP viewer and control surface.
type Server struct {
	hub      *hub.Hub
	autonomy Autonomy
	opts     Options
	logger   logging.Logger

	enriched *atomic.Bool
	handler  http.Handler

	httpServer *http.Server
	listener   net.Listener
	workers    utils.StoppableWorkers
}

// NewServer builds the routes. It does not listen until Start.
func NewServer(h *hub.Hub, autonomy Autonomy, opts Options, logger logging.Logger) *Server {
	s := &Server{
		hub:      h,
		autonomy: autonomy,
		opts:     opts,
		logger:   logger,
		enriched: atomic.NewBool(opts.Enriched),
	}

	mux := goji.NewMux()
	mux.HandleFunc(pat.Get("/"), s.index)
	mux.HandleFunc(pat.Get("/frames/:camera.jpg"), s.frame)
	mux.HandleFunc(pat.Get("/status"), s.status)
	mux.HandleFunc(pat.Post("/autonomy/toggle"), s.toggleAutonomy)
	mux.HandleFunc(pat.Post("/render/toggle"), s.toggleRender)
	if opts.Pprof {
		mux.HandleFunc(pat.New("/debug/pprof/"), pprof.Index)
		mux.HandleFunc(pat.New("/debug/pprof/cmdline"), pprof.Cmdline)
		mux.HandleFunc(pat.New("/debug/pprof/profile"), pprof.Profile)
		mux.HandleFunc(pat.New("/debug/pprof/symbol"), pprof.Symbol)
		mux.HandleFunc(pat.New("/debug/pprof/trace"), pprof.Trace)
	}
	s.handler = cors.AllowAll().Handler(mux)
	return s
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	if s.listener != nil {
		return errors.New("render server already started")
	}
	listener, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.opts.Address)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.workers = utils.NewStoppableWorkers(func(context.Context) {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorw("render server stopped", "error", err)
		}
	})
	s.logger.Infow("render server listening", "address", listener.Addr().String())
	return nil
}

// Addr returns the address the server listens on, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Enriched reports whether annotated frames are served.
func (s *Server) Enriched() bool {
	return s.enriched.Load()
}

// Close shuts the server down, waiting for in-flight requests until ctx is done.
func (s *Server) Close(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.workers.Stop()
	return err
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>rover</title></head>
<body>
<div>
{{range .Cameras}}<img id="{{.}}" src="/frames/{{.}}.jpg" width="480">{{end}}
</div>
<form method="post" action="/autonomy/toggle"><button>toggle autonomy</button></form>
<form method="post" action="/render/toggle"><button>toggle overlays</button></form>
<pre id="status"></pre>
<script>
setInterval(function() {
  var now = Date.now();
  {{range .Cameras}}document.getElementById("{{.}}").src = "/frames/{{.}}.jpg?t=" + now;
  {{end}}fetch("/status").then(function(r) { return r.text(); }).then(function(t) {
    document.getElementById("status").textContent = t;
  });
}, {{.RefreshMs}});
</script>
</body>
</html>
`))

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Cameras   []sensordata.Camera
		RefreshMs int
	}{
		Cameras:   []sensordata.Camera{sensordata.LeftCamera, sensordata.RightCamera},
		RefreshMs: 200,
	}
	if err := indexTemplate.Execute(w, data); err != nil {
		s.logger.Debugw("failed to render index", "error", err)
	}
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request) {
	name := pat.Param(r, "camera")
	cam, err := sensordata.ParseCamera(name)
	if name == "" || err != nil {
		http.NotFound(w, r)
		return
	}
	state, ok := s.hub.Latest()
	if !ok {
		http.Error(w, "no frames yet", http.StatusServiceUnavailable)
		return
	}

	var img image.Image
	if s.enriched.Load() {
		img = state.Annotated(cam)
	}
	if img == nil {
		img = state.Frame(cam)
	}
	if img == nil {
		http.Error(w, "no frame for camera "+string(cam), http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, err = w.Write(buf.Bytes())
	goutils.UncheckedError(err)
}

// Status is the document served at /status.
type Status struct {
	Hub         hub.Stats           `json:"hub"`
	Cycle       uint64              `json:"cycle"`
	Direction   string              `json:"direction"`
	Autonomy    bool                `json:"autonomy"`
	Enriched    bool                `json:"enriched"`
	LastCommand *sensordata.Command `json:"last_command,omitempty"`
	Navigator   navigation.Stats    `json:"navigator"`
	Modules     []string            `json:"modules"`
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	st := Status{
		Hub:       s.hub.Stats(),
		Autonomy:  s.autonomy.Enabled(),
		Enriched:  s.enriched.Load(),
		Navigator: s.autonomy.Stats(),
		Modules:   s.opts.Modules,
	}
	if state, ok := s.hub.Latest(); ok {
		st.Cycle = state.Cycle
		st.Direction = string(state.Direction)
	}
	if cmd, ok := s.autonomy.LastCommand(); ok {
		st.LastCommand = &cmd
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) toggleAutonomy(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.autonomy.Toggle(r.Context())
	resp := map[string]interface{}{"autonomy": enabled}
	if err != nil {
		s.logger.Warnw("failed to send stop after disabling autonomy", "error", err)
		resp["error"] = err.Error()
		s.writeJSON(w, http.StatusBadGateway, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) toggleRender(w http.ResponseWriter, r *http.Request) {
	enriched := !s.enriched.Toggle()
	s.logger.Infow("overlay rendering changed", "enriched", enriched)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"enriched": enriched})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debugw("failed to write response", "error", err)
	}
}
