package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"piefitness/internal/chat"
	"piefitness/internal/logging"
)

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrNotFound):
		Error(w, http.StatusNotFound, err.Error())
	default:
		logging.HTTP("request failed: %v", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

type conversationRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	var req conversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := s.svc.GetOrCreate(r.Context(), req.SessionID, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "conversation": view})
}

type messageRequest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	Message   string `json:"message"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.svc.SendMessage(r.Context(), req.SessionID, req.UserID, req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"messages": result.Messages,
		"conversation": map[string]any{
			"context":   result.Context,
			"analytics": result.Analytics,
		},
	})
}

type suggestionsRequest struct {
	SessionID string `json:"sessionId"`
	Context   *struct {
		CurrentTopic string `json:"currentTopic"`
	} `json:"context"`
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	topic := ""
	if req.Context != nil {
		topic = req.Context.CurrentTopic
	}
	suggestions, err := s.svc.Suggestions(r.Context(), req.SessionID, topic)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "suggestions": suggestions})
}

type feedbackRequest struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Helpful   *bool  `json:"helpful"`
	Rating    *int   `json:"rating"`
	Comment   string `json:"comment"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := s.svc.Feedback(r.Context(), req.SessionID, req.MessageID, req.Helpful, req.Rating, req.Comment)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "message": "Feedback recorded successfully"})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			Error(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	summaries, err := s.svc.History(r.Context(), sessionID, userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]any{"success": true, "conversations": summaries})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Healthy(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "store unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
