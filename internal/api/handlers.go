package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/njoerd114/holidaysync/internal/model"
	"github.com/njoerd114/holidaysync/internal/providerstore"
	"github.com/njoerd114/holidaysync/internal/state"
	syncengine "github.com/njoerd114/holidaysync/internal/sync"
)

// redactedKey is what clients see in place of a stored API key. Sending it
// back unchanged on update keeps the stored key.
var redactedKey = model.ProviderConfig{APIKey: "x"}.Redacted().APIKey

func (s *Server) fail(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type syncRequest struct {
	Year int `json:"year"`
}

func (s *Server) handleSync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if req.Year < 0 || req.Year > model.MaxYear {
		s.fail(c, http.StatusBadRequest, model.ErrYearOutOfRange)
		return
	}

	// A started run finishes even if the client goes away; only server
	// shutdown, through the base context, stops it.
	res, err := s.syncer.Run(context.WithoutCancel(c.Request.Context()), req.Year)
	switch {
	case errors.Is(err, syncengine.ErrSyncInProgress):
		s.fail(c, http.StatusConflict, err)
	case errors.Is(err, model.ErrYearOutOfRange):
		s.fail(c, http.StatusBadRequest, err)
	case err != nil:
		s.fail(c, http.StatusInternalServerError, err)
	default:
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) handleSyncLogs(c *gin.Context) {
	limit := s.limit
	if raw, ok := c.GetQuery("limit"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(c, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := s.syncer.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleHolidays(c *gin.Context) {
	f := state.HolidayFilter{VisibleOnly: true}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1 || year > 9999 {
			s.fail(c, http.StatusBadRequest, errors.New("year must be between 1 and 9999"))
			return
		}
		f.Year = year
	}
	if raw := c.Query("category"); raw != "" {
		cat, err := model.ParseCategory(raw)
		if err != nil {
			s.fail(c, http.StatusBadRequest, err)
			return
		}
		f.Category = cat
	}

	list, err := s.store.ListHolidays(c.Request.Context(), f)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*model.HolidayRecord{}
	}
	c.JSON(http.StatusOK, list)
}

// holidayFlags is the body of PATCH /holidays/:id. Omitted flags keep their
// current value.
type holidayFlags struct {
	Visible   *bool `json:"visible"`
	Recurring *bool `json:"recurring"`
}

// holiday loads the record named by the :id path parameter, writing a 404
// when it does not exist.
func (s *Server) holiday(c *gin.Context) (*model.HolidayRecord, bool) {
	h, err := s.store.GetHoliday(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return nil, false
	}
	if h == nil {
		s.fail(c, http.StatusNotFound, errors.New("holiday not found"))
		return nil, false
	}
	return h, true
}

func (s *Server) handleUpdateHoliday(c *gin.Context) {
	var req holidayFlags
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	h, ok := s.holiday(c)
	if !ok {
		return
	}
	if req.Visible != nil {
		h.Visible = *req.Visible
	}
	if req.Recurring != nil {
		h.Recurring = *req.Recurring
	}
	if err := s.store.SetHolidayFlags(c.Request.Context(), h.ID, h.Visible, h.Recurring); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("holiday flags updated", "id", h.ID, "visible", h.Visible, "recurring", h.Recurring)
	c.JSON(http.StatusOK, h)
}

func (s *Server) handleDeleteHoliday(c *gin.Context) {
	h, ok := s.holiday(c)
	if !ok {
		return
	}
	if err := s.store.DeleteHoliday(c.Request.Context(), h.ID); err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("holiday deleted", "id", h.ID, "title", h.Title, "date", h.Date)
	c.Status(http.StatusNoContent)
}

// handlePurgeLogs deletes sync log entries older than ?before=YYYY-MM-DD.
func (s *Server) handlePurgeLogs(c *gin.Context) {
	before, err := time.Parse(time.DateOnly, c.Query("before"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, errors.New("before must be a YYYY-MM-DD date"))
		return
	}
	n, err := s.store.DeleteSyncLogsBefore(c.Request.Context(), before)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("sync logs purged", "before", c.Query("before"), "deleted", n)
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

// --- providers ---------------------------------------------------------------

func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, providerstore.ErrNotFound):
		s.fail(c, http.StatusNotFound, err)
	case errors.Is(err, providerstore.ErrDuplicateID):
		s.fail(c, http.StatusConflict, err)
	default:
		s.fail(c, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleListProviders(c *gin.Context) {
	list, err := s.providers.Load(c.Request.Context())
	if err != nil {
		s.storeError(c, err)
		return
	}
	out := make([]model.ProviderConfig, len(list))
	for i, p := range list {
		out[i] = p.Redacted()
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetProvider(c *gin.Context) {
	p, err := s.providers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p.Redacted())
}

func (s *Server) handleCreateProvider(c *gin.Context) {
	var p model.ProviderConfig
	if err := c.ShouldBindJSON(&p); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := p.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.providers.Add(c.Request.Context(), p); err != nil {
		s.storeError(c, err)
		return
	}
	s.log.Info("provider added", "id", p.ID, "type", p.Type)
	c.JSON(http.StatusCreated, p.Redacted())
}

func (s *Server) handleUpdateProvider(c *gin.Context) {
	var p model.ProviderConfig
	if err := c.ShouldBindJSON(&p); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	id := c.Param("id")
	if p.ID == "" {
		p.ID = id
	}
	if p.ID != id {
		s.fail(c, http.StatusBadRequest, errors.New("provider id in body does not match path"))
		return
	}
	if p.APIKey == redactedKey {
		p.APIKey = ""
	}
	if err := p.Validate(); err != nil {
		s.fail(c, http.StatusBadRequest, err)
		return
	}
	if err := s.providers.Update(c.Request.Context(), p); err != nil {
		s.storeError(c, err)
		return
	}
	s.log.Info("provider updated", "id", p.ID)

	saved, err := s.providers.Get(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved.Redacted())
}

func (s *Server) handleDeleteProvider(c *gin.Context) {
	id := c.Param("id")
	if err := s.providers.Remove(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	s.log.Info("provider removed", "id", id)
	c.Status(http.StatusNoContent)
}
