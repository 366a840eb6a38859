package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Veraticus/rivalwatch/internal/common"
	"github.com/Veraticus/rivalwatch/internal/model"
	"github.com/Veraticus/rivalwatch/internal/pipeline"
)

var validate = validator.New()

// RecommendationRequest is the body of POST /v1/recommendations.
type RecommendationRequest struct {
	Text          string `json:"text" validate:"required"`
	BusinessID    string `json:"business_id,omitempty" validate:"max=128"`
	UserID        string `json:"user_id,omitempty" validate:"max=128"`
	DisableMemory bool   `json:"disable_memory,omitempty"`
}

// SnapshotRequest is the optional body of POST /v1/businesses/:id/recommendations.
type SnapshotRequest struct {
	UserID        string `json:"user_id,omitempty" validate:"max=128"`
	DisableMemory bool   `json:"disable_memory,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string                    `json:"error"`
	Violations []common.BlockedViolation `json:"violations,omitempty"`
}

func (s *Server) handleRecommendation(c *gin.Context) {
	var req RecommendationRequest
	if !s.bind(c, &req, false) {
		return
	}

	rec, err := s.svc.HandleRequest(c.Request.Context(), pipeline.Request{
		Text:          req.Text,
		BusinessID:    req.BusinessID,
		UserID:        req.UserID,
		DisableMemory: req.DisableMemory,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleSnapshotRecommendation(c *gin.Context) {
	var req SnapshotRequest
	if !s.bind(c, &req, true) {
		return
	}

	rec, err := s.svc.HandleBusinessSnapshot(c.Request.Context(), c.Param("id"), req.UserID, req.DisableMemory)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleInsights(c *gin.Context) {
	insights, err := s.svc.BusinessInsights(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, insights)
}

func (s *Server) handleHistory(c *gin.Context) {
	history, err := s.svc.CompetitorHistory(c.Request.Context(), c.Param("id"), c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	var extracted model.ExtractedContext
	if !s.bind(c, &extracted, false) {
		return
	}
	c.JSON(http.StatusOK, s.svc.RuleDiagnostics(extracted))
}

// bind decodes and validates the JSON body into out. An empty body is
// accepted only when optional is set.
func (s *Server) bind(c *gin.Context, out any, optional bool) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		s.logger.Debug("invalid request body", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}

	if err := validate.Struct(out); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: fe.Namespace() + " failed " + fe.Tag() + " validation"})
			return false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// writeError maps pipeline errors onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	var blocked *common.GuardrailBlockedError
	switch {
	case errors.As(err, &blocked):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error(), Violations: blocked.Violations})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrExternalService):
		s.logger.Error("upstream failure", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrMissingConfig):
		c.JSON(http.StatusNotImplemented, ErrorResponse{Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
