package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ─── Notification Inbox ─────────────────────────────────────────────────────
// The inbox shows everything the retry ledger holds for a seller, including
// dead notifications (retry budget exhausted, never delivered) — those are
// reported as undelivered-but-stored, not silently dropped.

// handleListNotifications returns the seller's notification inbox.
// GET /api/notifications
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	notifs, err := s.db.ListNotifications(seller, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	undelivered := 0
	for _, n := range notifs {
		if n.Dead() {
			undelivered++
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifs,
		"undelivered":   undelivered,
	})
}

// handleNotificationRead marks a notification as read.
// POST /api/notifications/{id}/read
func (s *Server) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	seller := sellerID(r)
	if seller == "" {
		writeError(w, http.StatusUnauthorized, "missing seller identity")
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing notification id")
		return
	}

	if err := s.db.MarkNotificationRead(id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
