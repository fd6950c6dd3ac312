package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/resumatch/internal/api"
	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/logger"
	"github.com/cloo-solutions/resumatch/internal/telemetry"
)

type ApplicationProcessor interface {
	ProcessApplication(ctx context.Context, jobDescription, resumeFilename string) (*domain.MatchAnalysis, error)
}

type AnalyzeHandler struct {
	processor ApplicationProcessor
	logger    *zap.Logger
}

func NewAnalyzeHandler(processor ApplicationProcessor, log *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{processor: processor, logger: logger.Named(log, "analyze")}
}

type AnalyzeRequest struct {
	JDText         string `json:"jd_text"`
	ResumeFilename string `json:"resume_filename"`
}

func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.JDText) == "" || strings.TrimSpace(req.ResumeFilename) == "" {
		api.Error(w, http.StatusBadRequest, "both jd_text and resume_filename are required")
		return
	}

	telemetry.Tag(r.Context(), "resume_filename", domain.SourceName(req.ResumeFilename))

	analysis, err := h.processor.ProcessApplication(r.Context(), req.JDText, req.ResumeFilename)
	if err != nil {
		h.logger.Error("analysis error", zap.String("resume", req.ResumeFilename), zap.Error(err))
		api.HandleError(w, err)
		return
	}

	telemetry.Tag(r.Context(), "match_score", strconv.FormatFloat(analysis.MatchScore, 'f', -1, 64))
	api.Success(w, http.StatusOK, analysis)
}
