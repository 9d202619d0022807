package portal

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/muurk/wifiapp/internal/credentials"
	"github.com/muurk/wifiapp/internal/logging"
	"github.com/muurk/wifiapp/internal/metrics"
	"github.com/muurk/wifiapp/internal/wifiapp"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies; credentials are at most ~100 bytes of JSON.
const maxBodyBytes = 4096

// retryAfterSeconds is suggested to clients when the queue is full.
const retryAfterSeconds = "1"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+PathStatus, s.handleStatus)
	mux.HandleFunc("POST "+PathConnect, s.handleConnect)
	mux.HandleFunc("POST "+PathDisconnect, s.handleDisconnect)
	mux.HandleFunc("POST "+PathReconnect, s.handleReconnect)
	mux.HandleFunc("GET "+PathEvents, s.handleEvents)
	if s.cfg.Metrics {
		mux.Handle("GET "+PathMetrics, metrics.Handler(s.cfg.Gatherer))
	}
	return loggingMiddleware(mux)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.allow(clientIP(r)) {
		writeError(w, http.StatusTooManyRequests, "too many connect requests", nil)
		return
	}

	var req ConnectRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", []string{err.Error()})
		return
	}

	creds := credentials.Credentials{SSID: req.SSID, Password: req.Password}
	if errs := credentials.ValidateErrors(creds); len(errs) > 0 {
		details := make([]string, 0, len(errs))
		for _, err := range errs {
			details = append(details, err.Error())
		}
		writeError(w, http.StatusBadRequest, "invalid credentials", details)
		return
	}

	s.enqueue(w, wifiapp.ConnectingFromHTTPServer{Credentials: creds}, "connect to "+creds.SSID+" queued")
}

func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	s.enqueue(w, wifiapp.UserRequestedStationDisconnect{}, "disconnect queued")
}

func (s *Server) handleReconnect(w http.ResponseWriter, _ *http.Request) {
	s.enqueue(w, wifiapp.LoadSavedCredentials{}, "reconnect with saved credentials queued")
}

func (s *Server) enqueue(w http.ResponseWriter, msg wifiapp.Message, accepted string) {
	if err := s.sender.Send(msg); err != nil {
		if errors.Is(err, wifiapp.ErrChannelFull) {
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeError(w, http.StatusServiceUnavailable, "manager busy, try again", nil)
			return
		}
		logging.Error("Failed to queue request", zap.String("kind", msg.Kind().String()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to queue request", nil)
		return
	}
	writeJSON(w, http.StatusAccepted, AcceptedResponse{Accepted: true, Message: accepted})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Debug("Websocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	initial, err := encodeEvent(Event{Type: EventStatus, Status: s.Status(), Time: time.Now()})
	if err != nil {
		logging.Error("Failed to encode status", zap.Error(err))
		_ = conn.Close()
		return
	}
	sub := s.hub.add(conn, r.RemoteAddr, initial)
	if sub == nil {
		_ = conn.Close()
		return
	}
	logging.LogConnection(r.RemoteAddr, "websocket_upgraded")

	go s.hub.writePump(sub)
	go s.hub.readPump(sub)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string, details []string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Details: details})
}
