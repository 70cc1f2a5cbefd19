package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chronicle/internal/service"
)

type BackupHandler struct {
	Backups *service.BackupService
}

func (h *BackupHandler) Register(r gin.IRouter) {
	g := r.Group("/backup")
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("", h.restoreRecorded)
	g.GET("/export", h.export)
	g.POST("/restore", h.restoreUpload)
	g.GET("/:id/download", h.file)
}

type createBackupRequest struct {
	Type string `json:"type"`
}

type restoreRequest struct {
	BackupID string                 `json:"backupId"`
	Options  service.RestoreOptions `json:"options"`
}

// @Summary List backups
// @Tags backup
// @Success 200 {object} apiResponse
// @Router /api/backup [get]
func (h *BackupHandler) list(c *gin.Context) {
	items, err := h.Backups.List(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

// @Summary Write a backup file
// @Description Snapshot of events, templates and recent webhook logs written to the backup directory.
// @Tags backup
// @Accept json
// @Param body body createBackupRequest false "backup type"
// @Success 201 {object} apiResponse
// @Security BearerAuth
// @Router /api/backup [post]
func (h *BackupHandler) create(c *gin.Context) {
	var req createBackupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			Error(c, http.StatusBadRequest, "invalid body", nil)
			return
		}
	}
	backup, err := h.Backups.Create(c.Request.Context(), req.Type)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, backup)
}

// @Summary Restore a recorded backup
// @Tags backup
// @Accept json
// @Param body body restoreRequest true "backup id and options"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Security BearerAuth
// @Router /api/backup [put]
func (h *BackupHandler) restoreRecorded(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.BackupID) == "" {
		Error(c, http.StatusBadRequest, "backupId is required", nil)
		return
	}
	res, err := h.Backups.RestoreBackup(c.Request.Context(), req.BackupID, req.Options)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Download a fresh snapshot
// @Tags backup
// @Produce json
// @Success 200 {file} file
// @Router /api/backup/export [get]
func (h *BackupHandler) export(c *gin.Context) {
	snap, err := h.Backups.Snapshot(c.Request.Context(), service.SnapshotExport)
	if err != nil {
		Fail(c, err)
		return
	}
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		Fail(c, err)
		return
	}
	download(c, service.Document{
		Filename:    "chronicle-backup-" + snap.ExportedAt.Format("20060102-150405") + ".json",
		ContentType: "application/json",
		Body:        body,
	})
}

// @Summary Restore from an uploaded snapshot
// @Description The body is a snapshot as produced by /api/backup/export.
// @Tags backup
// @Accept json
// @Param restoreEvents query bool false "default true"
// @Param restoreTemplates query bool false "default true"
// @Param restoreWebhookLogs query bool false "default true"
// @Param clearExisting query bool false "delete events and custom templates first"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/backup/restore [post]
func (h *BackupHandler) restoreUpload(c *gin.Context) {
	var snap service.Snapshot
	if err := c.ShouldBindJSON(&snap); err != nil {
		Error(c, http.StatusBadRequest, "invalid snapshot", nil)
		return
	}
	opts := service.RestoreOptions{
		Events:        optionalBoolQuery(c, "restoreEvents"),
		Templates:     optionalBoolQuery(c, "restoreTemplates"),
		WebhookLogs:   optionalBoolQuery(c, "restoreWebhookLogs"),
		ClearExisting: boolQuery(c, "clearExisting"),
	}
	res, err := h.Backups.Restore(c.Request.Context(), snap, opts)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Download a recorded backup file
// @Tags backup
// @Produce json
// @Param id path string true "backup id"
// @Success 200 {file} file
// @Failure 404 {object} apiResponse
// @Router /api/backup/{id}/download [get]
func (h *BackupHandler) file(c *gin.Context) {
	doc, err := h.Backups.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	download(c, doc)
}

func optionalBoolQuery(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	if err != nil {
		return nil
	}
	return &v
}
