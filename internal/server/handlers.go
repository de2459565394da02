package server

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/mxrag/internal/models"
	"github.com/hyperjump/mxrag/internal/pipeline"
)

const (
	healthMessage   = "API is running with the maintenance answer pipeline"
	errNoMessage    = "No message provided"
	pipelineFailure = "I encountered an error processing your request: "
)

type chatRequest struct {
	Message       *string `json:"message"`
	AircraftModel string  `json:"aircraftModel"`
	IssueCategory string  `json:"issueCategory"`
}

type chatResponse struct {
	Response       string  `json:"response"`
	ProcessingTime float64 `json:"processingTime"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		s.respondError(w, http.StatusBadRequest, errNoMessage)
		return
	}
	tags := models.Tags{AircraftModel: req.AircraftModel, IssueCategory: req.IssueCategory}
	s.logger.Debug("chat request",
		zap.String("message", *req.Message),
		zap.String("aircraft_model", tags.AircraftModel),
		zap.String("issue_category", tags.IssueCategory))

	var text string
	answer, err := s.answerer.Answer(r.Context(), *req.Message, tags)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.metrics.IncFailure(failureKind(err))
		text = pipelineFailure + err.Error()
	} else {
		s.metrics.ObserveAnswer(answer)
		text = answer.Text
	}

	s.respondJSON(w, http.StatusOK, chatResponse{
		Response:       text,
		ProcessingTime: math.Round(time.Since(start).Seconds()*100) / 100,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "message": healthMessage})
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case errors.Is(err, pipeline.ErrEmptyQuestion):
		return "empty_question"
	case errors.Is(err, pipeline.ErrEmbedding):
		return "embedding"
	case errors.Is(err, pipeline.ErrGeneration):
		return "generation"
	default:
		return "other"
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
