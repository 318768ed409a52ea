package input

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"prepchat/internal/handler"
	"prepchat/internal/middleware"
	"prepchat/internal/nlog"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type IptConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	JWTSecret    string
}

// InputManager owns the HTTP surface: routing, auth gating, and the drain
// gate used during shutdown.
type InputManager struct {
	running atomic.Bool
	paused  atomic.Bool

	logger nlog.Logger
	server *http.Server

	stopFromOutsideChan chan struct{}
	doneFromInsideChan  chan struct{}

	channelHandler *handler.ChannelHandler
	messageHandler *handler.MessageHandler
	wsHandler      *handler.WSHandler
}

func NewInputManager() *InputManager {
	return &InputManager{
		running:             atomic.Bool{},
		paused:              atomic.Bool{},
		stopFromOutsideChan: make(chan struct{}),
		doneFromInsideChan:  make(chan struct{}),
	}
}

func (i *InputManager) IsReady() bool {
	return i.logger != nil && i.channelHandler != nil && i.messageHandler != nil && i.wsHandler != nil
}

func (i *InputManager) IsRunning() bool {
	return i.running.Load()
}

func (i *InputManager) SetLogger(l nlog.Logger) {
	i.logger = l
}

func (i *InputManager) SetChannelHandler(h *handler.ChannelHandler) {
	i.channelHandler = h
}

func (i *InputManager) SetMessageHandler(h *handler.MessageHandler) {
	i.messageHandler = h
}

func (i *InputManager) SetWSHandler(h *handler.WSHandler) {
	i.wsHandler = h
}

func (i *InputManager) Logf(format string, a ...any) {
	i.logger.Logf(format, a...)
}

func (i *InputManager) SetPause(paused bool) {
	i.paused.Store(paused)
}

func (i *InputManager) IsPaused() bool {
	return i.paused.Load()
}

// PauseMiddleware rejects new requests while the server drains; in-flight
// requests are left to the http.Server shutdown to finish.
func (i *InputManager) PauseMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if i.IsPaused() {
			http.Error(w, "Service draining", http.StatusServiceUnavailable)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (i *InputManager) Run(ctx context.Context, cfg *IptConfig) error {
	if !i.IsReady() {
		return fmt.Errorf("The input manager is not ready... Missing components")
	}
	i.Logf("Input service starting on %s", cfg.Addr)

	authed := func(h func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
		return middleware.AuthMiddleware(cfg.JWTSecret, h)
	}

	r := mux.NewRouter()

	// Channel directory
	r.HandleFunc("/channels/getOrCreate", authed(i.channelHandler.GetOrCreate)).Methods("POST")

	// Message store + mutation gateway
	r.HandleFunc("/channels/{channelId}/messages", authed(i.messageHandler.List)).Methods("GET")
	r.HandleFunc("/channels/{channelId}/messages", authed(i.messageHandler.Send)).Methods("POST")
	r.HandleFunc("/messages/upload", authed(i.messageHandler.Upload)).Methods("POST")
	r.HandleFunc("/messages/{messageId}", authed(i.messageHandler.Edit)).Methods("PUT")
	r.HandleFunc("/messages/{messageId}", authed(i.messageHandler.Delete)).Methods("DELETE")

	// Realtime bus; the handler verifies its own token since websocket dials
	// cannot always carry headers.
	r.HandleFunc("/ws", i.wsHandler.Handle).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	i.server = &http.Server{
		Addr:           cfg.Addr,
		Handler:        i.PauseMiddleware(r),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		select {
		case <-ctx.Done():
			i.Logf("Received stop signal. Shutting down...")
		case <-i.stopFromOutsideChan:
			i.Logf("Server was asked to stop. Shutting down...")
		}

		i.SetPause(true)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := i.server.Shutdown(shutdownCtx); err != nil {
			i.Logf("Error during shutdown... %v", err)
		}
		close(i.doneFromInsideChan)
	}()

	i.running.Store(true)
	defer i.running.Store(false)

	if err := i.server.ListenAndServe(); err != http.ErrServerClosed {
		i.Logf("FATAL: HTTP Server error{%v}", err)
		return err
	}
	<-i.doneFromInsideChan

	return nil
}

func (i *InputManager) Stop() {
	close(i.stopFromOutsideChan)
	<-i.doneFromInsideChan
	i.running.Store(false)
}
