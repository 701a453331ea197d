package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"weatherdash.app/internal/core/dashboard"
	apperrors "weatherdash.app/pkg/errors"
)

// ViewportRequest carries the client's viewport width
type ViewportRequest struct {
	ViewportWidth int `json:"viewport_width" binding:"omitempty,min=1,max=16384"`
}

// ResizeRequest is the body of PUT /api/sessions/:id/viewport
type ResizeRequest struct {
	Width int `json:"width" binding:"required,min=1,max=16384"`
}

// QueryRequest is typed search input; an empty query is allowed
type QueryRequest struct {
	Query string `json:"q" binding:"max=200"`
}

// SubmitRequest is an explicit search; without q the typed query is used
type SubmitRequest struct {
	Query *string `json:"q" binding:"omitempty,max=200"`
}

// LoginRequest is the mock sign-in form
type LoginRequest struct {
	Name string `json:"name" binding:"required,max=64"`
}

type sessionURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type cardURI struct {
	ID   string `uri:"id" binding:"required,uuid"`
	Card string `uri:"card" binding:"required"`
}

type panelURI struct {
	ID   string `uri:"id" binding:"required,uuid"`
	Kind string `uri:"kind" binding:"required,panel_kind"`
	Card string `uri:"card" binding:"required"`
}

// FavoriteResponse reports the card's pinned state with the new view
type FavoriteResponse struct {
	Favorite bool            `json:"favorite"`
	State    dashboard.State `json:"state"`
}

// bindOptionalJSON binds a body that may be absent
func bindOptionalJSON(c *gin.Context, target interface{}) error {
	if err := c.ShouldBindJSON(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// createSession handles POST /api/sessions
func (s *HTTPServerAdapter) createSession(c *gin.Context) {
	var req ViewportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		slog.Debug("Request binding error", "error", err)
		s.handleError(c, apperrors.NewValidationError("Invalid request format"))
		return
	}

	session, err := s.sessions.Create(c.Request.Context(), req.ViewportWidth)
	if err != nil {
		slog.Error("Session creation error", "error", err)
		s.handleError(c, err)
		return
	}

	slog.Debug("Session created", "session", session.ID())
	c.JSON(http.StatusCreated, session.State())
}

// openSession handles PUT /api/sessions/:id
func (s *HTTPServerAdapter) openSession(c *gin.Context) {
	var uri sessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid session id"))
		return
	}
	var req ViewportRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid request format"))
		return
	}

	session, err := s.sessions.GetOrCreate(c.Request.Context(), uri.ID, req.ViewportWidth)
	if err != nil {
		slog.Error("Session open error", "error", err, "session", uri.ID)
		s.handleError(c, err)
		return
	}

	s.respondState(c, session)
}

// getSession handles GET /api/sessions/:id
func (s *HTTPServerAdapter) getSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	s.respondState(c, session)
}

// setQuery handles PUT /api/sessions/:id/query
func (s *HTTPServerAdapter) setQuery(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid request format"))
		return
	}

	session.SetQuery(req.Query)
	s.respondState(c, session)
}

// submitSearch handles POST /api/sessions/:id/search
func (s *HTTPServerAdapter) submitSearch(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req SubmitRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid request format"))
		return
	}

	query := session.State().Query
	if req.Query != nil {
		query = *req.Query
	}

	if err := session.Submit(query); err != nil {
		slog.Debug("Search rejected", "session", session.ID(), "error", err)
		c.JSON(http.StatusBadRequest, session.State())
		return
	}

	s.respondState(c, session)
}

// resizeViewport handles PUT /api/sessions/:id/viewport
func (s *HTTPServerAdapter) resizeViewport(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("width must be between 1 and 16384"))
		return
	}

	session.Resize(c.Request.Context(), req.Width)
	s.respondState(c, session)
}

// login handles POST /api/sessions/:id/login
func (s *HTTPServerAdapter) login(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.handleError(c, apperrors.NewValidationError("name is required"))
		return
	}

	if err := session.Login(c.Request.Context(), req.Name); err != nil {
		s.handleError(c, err)
		return
	}

	slog.Debug("Session signed in", "session", session.ID())
	s.respondState(c, session)
}

// logout handles POST /api/sessions/:id/logout
func (s *HTTPServerAdapter) logout(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}

	session.Logout(c.Request.Context())
	s.respondState(c, session)
}

// refreshCard handles POST /api/sessions/:id/cards/:card/refresh
func (s *HTTPServerAdapter) refreshCard(c *gin.Context) {
	session, card, ok := s.sessionCard(c)
	if !ok {
		return
	}

	if err := session.Refresh(card); err != nil {
		s.handleError(c, err)
		return
	}
	s.respondState(c, session)
}

// toggleFavorite handles POST /api/sessions/:id/cards/:card/favorite
func (s *HTTPServerAdapter) toggleFavorite(c *gin.Context) {
	session, card, ok := s.sessionCard(c)
	if !ok {
		return
	}

	pinned, err := session.ToggleFavorite(c.Request.Context(), card)
	if err != nil {
		s.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, FavoriteResponse{Favorite: pinned, State: session.State()})
}

// deleteCard handles DELETE /api/sessions/:id/cards/:card
func (s *HTTPServerAdapter) deleteCard(c *gin.Context) {
	session, card, ok := s.sessionCard(c)
	if !ok {
		return
	}

	session.Delete(c.Request.Context(), card)
	s.respondState(c, session)
}

// togglePanel handles POST /api/sessions/:id/panels/:kind/:card
func (s *HTTPServerAdapter) togglePanel(c *gin.Context) {
	var uri panelURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid panel request"))
		return
	}
	session, err := s.sessions.Get(uri.ID)
	if err != nil {
		s.handleError(c, err)
		return
	}

	if err := session.TogglePanel(dashboard.PanelKind(uri.Kind), uri.Card); err != nil {
		s.handleError(c, err)
		return
	}
	s.respondState(c, session)
}

func (s *HTTPServerAdapter) session(c *gin.Context) (*dashboard.Session, bool) {
	var uri sessionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid session id"))
		return nil, false
	}
	session, err := s.sessions.Get(uri.ID)
	if err != nil {
		s.handleError(c, err)
		return nil, false
	}
	return session, true
}

func (s *HTTPServerAdapter) sessionCard(c *gin.Context) (*dashboard.Session, string, bool) {
	var uri cardURI
	if err := c.ShouldBindUri(&uri); err != nil {
		s.handleError(c, apperrors.NewValidationError("Invalid card request"))
		return nil, "", false
	}
	session, err := s.sessions.Get(uri.ID)
	if err != nil {
		s.handleError(c, err)
		return nil, "", false
	}
	return session, uri.Card, true
}

// respondState writes the session view, first waiting for background work
// when the client asks with ?settle=true
func (s *HTTPServerAdapter) respondState(c *gin.Context, session *dashboard.Session) {
	if c.Query("settle") == "true" {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.settleTimeout)
		defer cancel()
		if err := session.Settle(ctx); err != nil {
			slog.Warn("Session did not settle in time", "session", session.ID(), "error", err)
		}
	}
	c.JSON(http.StatusOK, session.State())
}
