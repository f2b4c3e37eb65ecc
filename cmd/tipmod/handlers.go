package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/tiptune/tipmod/automod"
	"github.com/tiptune/tipmod/automod/logstore"
	"github.com/tiptune/tipmod/models"

	"github.com/carlmjohnson/versioninfo"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type GenericError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type GenericStatus struct {
	Daemon  string `json:"daemon"`
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Message string `json:"msg,omitempty"`
}

type MessageRequest struct {
	Message string `json:"message"`
	// user id of the receiving artist; selects artist-scoped rules
	ArtistUserID string `json:"artist_user_id,omitempty"`
}

type ScreenResponse struct {
	Message string `json:"message"`
}

type TipRequest struct {
	ID       string  `json:"id,omitempty"`
	ArtistID string  `json:"artist_id"`
	Message  *string `json:"message"`
}

type TipResponse struct {
	Tip           *models.Tip           `json:"tip"`
	ModerationLog *models.ModerationLog `json:"moderation_log"`
}

type KeywordRequest struct {
	Keyword  string `json:"keyword"`
	Severity string `json:"severity"`
}

type ReviewRequest struct {
	Action string `json:"action"`
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	resp := GenericError{Error: "InternalError", Message: "internal server error"}

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		resp = GenericError{Error: http.StatusText(code), Message: fmt.Sprintf("%s", he.Message)}
	case errors.Is(err, automod.ErrNotFound):
		code = http.StatusNotFound
		resp = GenericError{Error: "NotFound", Message: err.Error()}
	case errors.Is(err, automod.ErrUnauthorized):
		code = http.StatusForbidden
		resp = GenericError{Error: "Unauthorized", Message: err.Error()}
	case errors.Is(err, automod.ErrBlockedContent):
		code = http.StatusBadRequest
		resp = GenericError{Error: "BlockedContent", Message: "message contains blocked content"}
	case errors.Is(err, automod.ErrInvalidInput):
		code = http.StatusBadRequest
		resp = GenericError{Error: "InvalidInput", Message: err.Error()}
	case errors.Is(err, logstore.ErrTipExists):
		code = http.StatusConflict
		resp = GenericError{Error: "TipExists", Message: err.Error()}
	case errors.Is(err, automod.ErrAlreadyReviewed):
		code = http.StatusConflict
		resp = GenericError{Error: "AlreadyReviewed", Message: err.Error()}
	}
	if code >= 500 {
		srv.logger.Warn("tipmod-http-internal-error", "err", err)
	}
	apiErrors.WithLabelValues(strconv.Itoa(code)).Inc()
	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, resp); err != nil {
		srv.logger.Error("failed to write error response", "err", err)
	}
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	sqlDB, err := srv.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		srv.logger.Error("health check database ping failed", "err", err)
		return c.JSON(http.StatusServiceUnavailable, GenericStatus{Status: "error", Daemon: "tipmod", Version: versioninfo.Short(), Message: "database unavailable"})
	}
	return c.JSON(http.StatusOK, GenericStatus{Status: "ok", Daemon: "tipmod", Version: versioninfo.Short()})
}

func (srv *Server) HandlePreview(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandlePreview")
	defer span.End()

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	v, err := srv.mod.PreviewMessage(ctx, req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func (srv *Server) HandleScreen(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandleScreen")
	defer span.End()

	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	out, err := srv.mod.ScreenMessage(ctx, req.Message, req.ArtistUserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ScreenResponse{Message: out})
}

// Stores a new tip, moderating its message. A tip is moderated exactly once: an id which is already stored is rejected.
//
// The tip id is reserved with no message before moderation runs, and the message is only written once moderation succeeded, so unmoderated text is never stored.
func (srv *Server) HandleModerateTip(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandleModerateTip")
	defer span.End()

	var req TipRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.ArtistID) == "" {
		return fmt.Errorf("%w: artist_id is required", automod.ErrInvalidInput)
	}
	tipsReceived.Inc()

	tip := &models.Tip{
		ID:       req.ID,
		ArtistID: req.ArtistID,
		Message:  req.Message,
	}
	if tip.ID == "" {
		tip.ID = uuid.NewString()
	}

	reserved := *tip
	reserved.Message = nil
	if err := srv.tips.CreateTip(ctx, &reserved); err != nil {
		return err
	}
	tip.CreatedAt = reserved.CreatedAt
	tip.UpdatedAt = reserved.UpdatedAt

	log, err := srv.mod.ModerateTipMessage(ctx, tip, tip.ArtistID)
	if err != nil {
		// release the id so the sender can retry
		if derr := srv.tips.DeleteTip(ctx, tip.ID); derr != nil {
			srv.logger.Error("failed to release tip after moderation failure", "tip", tip.ID, "err", derr)
		}
		return err
	}
	if tip.Message != nil {
		if err := srv.tips.SaveTip(ctx, tip); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusCreated, TipResponse{Tip: tip, ModerationLog: log})
}

func (srv *Server) HandleListKeywords(c echo.Context) error {
	ctx := c.Request().Context()

	rules, err := srv.mod.ListKeywords(ctx, callerFrom(c), c.QueryParam("artist_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rules)
}

func (srv *Server) HandleAddGlobalKeyword(c echo.Context) error {
	ctx := c.Request().Context()

	var req KeywordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	rule, err := srv.mod.AddGlobalKeyword(ctx, callerFrom(c), req.Keyword, req.Severity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rule)
}

func (srv *Server) HandleAddArtistKeyword(c echo.Context) error {
	ctx := c.Request().Context()

	var req KeywordRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	rule, err := srv.mod.AddArtistKeyword(ctx, callerFrom(c), req.Keyword, req.Severity)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rule)
}

func (srv *Server) HandleDeleteKeyword(c echo.Context) error {
	ctx := c.Request().Context()

	if err := srv.mod.DeleteKeyword(ctx, callerFrom(c), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (srv *Server) HandleModerationQueue(c echo.Context) error {
	ctx := c.Request().Context()

	page, err := intQueryParam(c, "page", 1)
	if err != nil {
		return err
	}
	limit, err := intQueryParam(c, "limit", automod.DefaultQueueLimit)
	if err != nil {
		return err
	}
	out, err := srv.mod.ModerationQueue(ctx, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) HandleReviewLog(c echo.Context) error {
	ctx, span := tracer.Start(c.Request().Context(), "HandleReviewLog")
	defer span.End()

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	action, err := models.ParseReviewAction(req.Action)
	if err != nil {
		return fmt.Errorf("%w: %w", automod.ErrInvalidInput, err)
	}
	log, err := srv.mod.ReviewModerationLog(ctx, c.Param("id"), action, callerFrom(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, log)
}

func (srv *Server) HandleStats(c echo.Context) error {
	ctx := c.Request().Context()

	stats, err := srv.mod.Stats(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func intQueryParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s parameter: %q", automod.ErrInvalidInput, name, raw)
	}
	return v, nil
}
