// cmd/server/routes.go
package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/obrien-tchaleu/ludo-stake-go/internal/shared/errs"
)

const adminKeyHeader = "X-Admin-Key"

// Router expose le websocket, la santé, les métriques et l'administration
func (a *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)

	r.Handle("/ws", a.ws)
	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", a.metrics.Handler())
	r.Get("/debug/presence", a.handlePresence)

	r.Route("/admin", func(r chi.Router) {
		r.Use(a.requireAdminKey)
		r.Post("/rooms/{roomId}/end", a.handleEndGame)
		r.Get("/games/{gameId}/audit", a.handleAudit)
	})
	return r
}

func (a *App) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("🌐 Requête HTTP",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("requestId", middleware.GetReqID(r.Context())))
	})
}

// requireAdminKey refuse l'administration si aucune clé n'est configurée
func (a *App) requireAdminKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := a.cfg.Server.AdminKey
		if key == "" {
			http.Error(w, "admin endpoints disabled", http.StatusNotFound)
			return
		}
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(adminKeyHeader)), []byte(key)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handlePresence(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.coord.Presence().Snapshot())
}

func (a *App) handleEndGame(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	winner := r.URL.Query().Get("winner")

	g, err := a.coord.EndGame(r.Context(), roomID, winner)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("🛑 Partie terminée par l'administration",
		zap.String("roomId", roomID),
		zap.String("gameId", g.GameID),
		zap.String("winner", g.WinnerUserID))
	writeJSON(w, http.StatusOK, g.View())
}

func (a *App) handleAudit(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameId")

	err := a.engine.Audit(r.Context(), gameID)
	var typed *errs.Error
	if errors.As(err, &typed) {
		a.writeError(w, err)
		return
	}
	res := auditResponse{GameID: gameID, Valid: err == nil}
	if err != nil {
		res.Error = err.Error()
		a.logger.Warn("🚨 Journal de dés incohérent", zap.String("gameId", gameID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, res)
}

type auditResponse struct {
	GameID string `json:"gameId"`
	Valid  bool   `json:"valid"`
	Error  string `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	e := errs.As(err)
	status := statusOf(e.Kind)
	if status == http.StatusInternalServerError {
		a.logger.Error("❌ Requête d'administration échouée", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Code: e.Code, Message: e.PublicMessage()})
}

func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindRule, errs.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
