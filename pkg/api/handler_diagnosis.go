package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/concilium-ai/concilium/pkg/deliberation"
	"github.com/concilium-ai/concilium/pkg/llm"
	"github.com/concilium-ai/concilium/pkg/patient"
	"github.com/concilium-ai/concilium/pkg/summary"
	"github.com/concilium-ai/concilium/pkg/version"
)

// DiagnosisRequest is the body of POST /api/v1/diagnosis.
type DiagnosisRequest struct {
	// PatientInfo is the structured patient record.
	PatientInfo *patient.Record `json:"patient_info" binding:"required"`

	// Messages is the optional triage dialogue preceding the diagnosis.
	Messages []llm.Message `json:"messages,omitempty"`

	// SummaryWithDialogue, when set, skips dialogue summarization.
	SummaryWithDialogue string `json:"summary_with_dialogue,omitempty"`

	// SummaryStyle is an optional formatting directive for the final report.
	SummaryStyle string `json:"summary_style,omitempty"`
}

// DiagnosisResponse is the body of a successful diagnosis.
type DiagnosisResponse struct {
	SessionID   string        `json:"session_id"`
	FinalReport string        `json:"final_report"`
	Messages    []llm.Message `json:"messages"`
}

// createDiagnosis handles POST /api/v1/diagnosis: one synchronous
// deliberation run from patient record to final report.
func (s *Server) createDiagnosis(c *gin.Context) {
	var req DiagnosisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := deliberation.MainState{
		MDTState: deliberation.MDTState{
			Patient:             req.PatientInfo,
			SummaryWithDialogue: req.SummaryWithDialogue,
		},
		Messages:       req.Messages,
		StartDiagnosis: true,
		SummaryStyle:   req.SummaryStyle,
	}

	out, err := s.pipeline.Invoke(c.Request.Context(), state)
	if err != nil {
		status, message := mapPipelineError(err)
		c.JSON(status, gin.H{"error": message, "session_id": out.SessionID})
		return
	}

	c.JSON(http.StatusOK, DiagnosisResponse{
		SessionID:   out.SessionID,
		FinalReport: out.FinalReport,
		Messages:    out.Messages,
	})
}

// health handles GET /api/v1/health.
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"name":    version.AppName,
		"version": version.Full(),
	})
}

// mapPipelineError maps pipeline errors to HTTP responses.
func mapPipelineError(err error) (int, string) {
	var noReports *summary.NoReportsError
	if errors.As(err, &noReports) {
		return http.StatusUnprocessableEntity, noReports.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, "diagnosis cancelled before completion"
	}

	slog.Error("Diagnosis failed", "error", err)
	return http.StatusInternalServerError, "internal server error"
}
