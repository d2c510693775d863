// cmd/codies/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eltmon/codies/internal/config"
	"github.com/eltmon/codies/internal/protocol"
	"github.com/eltmon/codies/internal/server"
	"github.com/eltmon/codies/internal/version"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("loading config")
	}

	if !cfg.Debug && !version.Set() {
		log.Fatal("running a production build without a version set")
	}

	log.WithField("version", version.Version()).Info("starting codies server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	srv := server.NewServer(server.Options{
		Log:         log,
		MaxRooms:    cfg.MaxRooms,
		RoomTTL:     cfg.RoomTTL,
		TurnSeconds: cfg.TurnSeconds,
	})
	g.Go(func() error {
		return srv.Run(ctx)
	})

	wsOpts := &websocket.AcceptOptions{
		OriginPatterns:  cfg.Origins,
		CompressionMode: websocket.CompressionContextTakeover,
	}
	if cfg.Debug {
		log.Warn("debug mode: allowing any websocket origin")
		wsOpts.InsecureSkipVerify = true
	}

	h := &handler{
		log:    log,
		srv:    srv,
		wsOpts: wsOpts,
		debug:  cfg.Debug,
	}

	runServer(ctx, g, cfg.Addr, h.routes())

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		runServer(ctx, g, cfg.MetricsAddr, mux)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("server exited")
	}
}

type handler struct {
	log    *logrus.Logger
	srv    *server.Server
	wsOpts *websocket.AcceptOptions
	debug  bool
}

func (h *handler) routes() http.Handler {
	r := chi.NewMux()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoCache)

		r.Get("/api/time", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, &protocol.TimeResponse{Time: time.Now()})
		})

		r.Get("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
			rooms, clients := h.srv.Stats()
			writeJSON(w, http.StatusOK, &protocol.StatsResponse{
				Rooms:   rooms,
				Clients: clients,
			})
		})

		r.Group(func(r chi.Router) {
			if !h.debug {
				r.Use(h.checkVersion)
			}

			r.Get("/api/exists", h.exists)
			r.Post("/api/room", h.room)
			r.Get("/api/ws", h.ws)
		})
	})

	return r
}

func (h *handler) exists(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomID")
	if roomID == "" {
		httpErr(w, http.StatusBadRequest)
		return
	}

	if h.srv.FindRoomByID(roomID) == nil {
		httpErr(w, http.StatusNotFound)
		return
	}
	httpErr(w, http.StatusOK)
}

func (h *handler) room(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req := &protocol.RoomRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httpErr(w, http.StatusBadRequest)
		return
	}

	if msg, valid := req.Valid(); !valid {
		writeJSON(w, http.StatusBadRequest, &protocol.RoomResponse{Error: stringPtr(msg)})
		return
	}

	var room *server.Room
	if req.Create {
		var err error
		room, err = h.srv.CreateRoom(req.RoomName, req.RoomPass)
		switch {
		case err == nil:
		case errors.Is(err, server.ErrRoomExists):
			writeJSON(w, http.StatusBadRequest, &protocol.RoomResponse{Error: stringPtr("Room already exists.")})
			return
		case errors.Is(err, server.ErrTooManyRooms):
			writeJSON(w, http.StatusServiceUnavailable, &protocol.RoomResponse{Error: stringPtr("Too many rooms.")})
			return
		default:
			h.log.WithError(err).Error("creating room")
			writeJSON(w, http.StatusInternalServerError, &protocol.RoomResponse{Error: stringPtr("An unknown error occurred.")})
			return
		}
	} else {
		room = h.srv.FindRoom(req.RoomName)
		if room == nil || !room.CheckPassword(req.RoomPass) {
			writeJSON(w, http.StatusNotFound, &protocol.RoomResponse{Error: stringPtr("Room not found or password does not match.")})
			return
		}
	}

	writeJSON(w, http.StatusOK, &protocol.RoomResponse{ID: &room.ID})
}

func (h *handler) ws(w http.ResponseWriter, r *http.Request) {
	query := parseWSQuery(r)
	if !query.Valid() {
		httpErr(w, http.StatusBadRequest)
		return
	}

	room := h.srv.FindRoomByID(query.RoomID)
	if room == nil {
		httpErr(w, http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, h.wsOpts)
	if err != nil {
		return
	}

	room.HandleConn(r.Context(), query.PlayerID, query.Nickname, c)
}

func parseWSQuery(r *http.Request) *protocol.WSQuery {
	q := r.URL.Query()
	query := &protocol.WSQuery{
		RoomID:   q.Get("roomID"),
		Nickname: q.Get("nickname"),
	}
	if id, err := uuid.Parse(q.Get("playerID")); err == nil {
		query.PlayerID = id
	}
	return query
}

// checkVersion rejects clients built against a different protocol version.
// Websocket upgrades get a dedicated close code telling the client to reload.
func (h *handler) checkVersion(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := version.Version()

		got := r.Header.Get("X-Codies-Version")
		if got == "" {
			got = r.URL.Query().Get("codiesVersion")
		}

		if got == want {
			next.ServeHTTP(w, r)
			return
		}

		reason := fmt.Sprintf("client version too old, please reload to get %s", want)

		if r.Header.Get("Upgrade") == "websocket" {
			c, err := websocket.Accept(w, r, h.wsOpts)
			if err != nil {
				return
			}
			_ = c.Close(protocol.StatusClientOutdated, reason)
			return
		}

		w.WriteHeader(http.StatusTeapot)
		fmt.Fprint(w, reason)
	})
}

// runServer starts an HTTP server on the group and shuts it down gracefully
// when ctx is cancelled.
func runServer(ctx context.Context, g *errgroup.Group, addr string, h http.Handler) {
	httpSrv := http.Server{Addr: addr, Handler: h}

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		err := httpSrv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func httpErr(w http.ResponseWriter, code int) {
	http.Error(w, http.StatusText(code), code)
}

func stringPtr(s string) *string {
	return &s
}
