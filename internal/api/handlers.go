package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	apperrors "climate-risk-advisor/internal/common/errors"
	"climate-risk-advisor/internal/common/session"
	"climate-risk-advisor/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type chatRequest struct {
	Query string `json:"query"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type locationRequest struct {
	Lat     *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng     *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
	Address string   `json:"address" binding:"max=500"`
}

type locationResponse struct {
	Location string                `json:"location"`
	Source   models.LocationSource `json:"source"`
}

func (s *Server) fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(err), apperrors.ToResponse(err))
}

// sessionID returns the caller's session id, minting one when absent.
// The id is always echoed back.
func sessionID(c *gin.Context) string {
	id := strings.TrimSpace(c.GetHeader(SessionHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Header(SessionHeader, id)
	return id
}

func (s *Server) chat(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.fail(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := s.chatValidator.ValidateJSON(body)
	if err != nil {
		s.fail(c, apperrors.NewInvalidRequestError("body must be a JSON object"))
		return
	}
	if !result.Valid {
		s.fail(c, apperrors.NewInvalidRequestError(result.Summary()))
		return
	}

	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.fail(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	id := sessionID(c)
	outcome, err := s.opts.Pipeline.Run(c.Request.Context(), id, req.Query)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{Response: outcome.Response})
}

func (s *Server) setLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperrors.NewInvalidRequestError(bindingDetails(err)))
		return
	}

	id := sessionID(c)
	loc := strings.TrimSpace(req.Address)

	err := s.opts.Sessions.WithSession(c.Request.Context(), id, func(st *session.State) error {
		if loc == "" || !st.SetLastLocation(loc) {
			loc = formatCoordinates(*req.Lat, *req.Lng)
			st.SetLastLocation(loc)
		}
		return nil
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info("location pinned", map[string]interface{}{
		"sessionId": id,
		"location":  loc,
	})
	c.JSON(http.StatusOK, locationResponse{Location: loc, Source: models.LocationSourcePinned})
}

func (s *Server) sessionTurns(c *gin.Context) {
	if s.opts.Audit == nil {
		s.fail(c, apperrors.NewAuditDisabledError())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(c, apperrors.NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	id := c.Param("id")
	turns, err := s.opts.Audit.RecentTurns(c.Request.Context(), id, limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	if turns == nil {
		turns = []models.TurnRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": id, "turns": turns})
}

func (s *Server) resetSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.opts.Sessions.Reset(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ready pings every configured dependency.
func (s *Server) ready(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.opts.Checks))

	for name, check := range s.opts.Checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyCheckTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

func formatCoordinates(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// bindingDetails flattens validator errors into "field: rule" pairs.
func bindingDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
