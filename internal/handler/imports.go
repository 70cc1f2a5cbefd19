package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chronicle/internal/service"
)

const maxImportBytes = 10 << 20

// ImportHandler accepts bulk imports and triggers the GitHub poller.
type ImportHandler struct {
	Import *service.ImportService
	// Sync is nil when polling is not configured.
	Sync *service.GitHubSync
}

func (h *ImportHandler) Register(r gin.IRouter) {
	r.POST("/import", h.importJSON)
	r.POST("/import/changelog", h.importChangelog)
	r.POST("/import/gitlog", h.importGitLog)
	r.POST("/sync/github", h.syncGitHub)
	r.GET("/sync/github", h.syncStatus)
}

// @Summary Import events from a JSON export
// @Tags import
// @Accept json
// @Param body body service.ImportRequest true "events and options"
// @Success 200 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Security BearerAuth
// @Router /api/import [post]
func (h *ImportHandler) importJSON(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, "invalid import file", nil)
		return
	}
	res, err := h.Import.ImportJSON(c.Request.Context(), req)
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: res.Message(), Data: res})
}

// @Summary Import a CHANGELOG.md document
// @Tags import
// @Accept plain
// @Param body body string true "changelog markdown"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/import/changelog [post]
func (h *ImportHandler) importChangelog(c *gin.Context) {
	text, ok := readText(c)
	if !ok {
		return
	}
	res, err := h.Import.ImportChangelog(c.Request.Context(), text)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Import `git log` output
// @Tags import
// @Accept plain
// @Param body body string true "git log --date=iso --format=%H|%ad|%an|%s"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/import/gitlog [post]
func (h *ImportHandler) importGitLog(c *gin.Context) {
	text, ok := readText(c)
	if !ok {
		return
	}
	res, err := h.Import.ImportGitLog(c.Request.Context(), text)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

func readText(c *gin.Context) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes))
	if err != nil {
		Error(c, http.StatusBadRequest, "failed to read body", nil)
		return "", false
	}
	text := string(body)
	if strings.TrimSpace(text) == "" {
		Error(c, http.StatusBadRequest, "empty body", nil)
		return "", false
	}
	return text, true
}

// @Summary Poll GitHub for new commits now
// @Tags sync
// @Success 200 {object} apiResponse
// @Failure 503 {object} apiResponse
// @Security BearerAuth
// @Router /api/sync/github [post]
func (h *ImportHandler) syncGitHub(c *gin.Context) {
	if h.Sync == nil {
		Error(c, http.StatusServiceUnavailable, "github sync is not configured", nil)
		return
	}
	res, err := h.Sync.Run(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apiResponse{Code: 0, Message: res.Message, Data: res})
}

// @Summary Last GitHub sync attempt
// @Tags sync
// @Success 200 {object} apiResponse
// @Router /api/sync/github [get]
func (h *ImportHandler) syncStatus(c *gin.Context) {
	if h.Sync == nil {
		Ok(c, gin.H{"configured": false}, nil)
		return
	}
	state, err := h.Sync.State(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"configured": true, "scope": h.Sync.Scope(), "state": state}, nil)
}
