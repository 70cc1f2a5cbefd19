package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chronicle/internal/auth"
	"chronicle/internal/repository"
	"chronicle/internal/service"
)

type EventsHandler struct {
	Events *service.EventService
	// Stream upgrades GET /events/stream; nil disables the route.
	Stream http.Handler
}

func (h *EventsHandler) Register(r gin.IRouter) {
	g := r.Group("/events")
	g.GET("", h.list)
	g.POST("", h.create)
	if h.Stream != nil {
		g.GET("/stream", gin.WrapH(h.Stream))
	}
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/related", h.related)
	g.GET("/:id/versions", h.versions)
	g.POST("/:id/versions", h.restore)
	g.GET("/:id/links", h.links)
	g.POST("/:id/links", h.createLink)
	g.DELETE("/:id/links", h.deleteLink)
}

// @Summary List events
// @Tags events
// @Param category query string false "category"
// @Param search query string false "substring of title or content"
// @Param limit query int false "limit" default(100)
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/events [get]
func (h *EventsHandler) list(c *gin.Context) {
	params := repository.ListEventsParams{
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
		Category: stringQuery(c, "category"),
		Search:   stringQuery(c, "search"),
	}
	if params.Category != nil && *params.Category == "all" {
		params.Category = nil
	}
	items, total, err := h.Events.List(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": total, "limit": params.Limit, "offset": params.Offset})
}

// @Summary Create an event
// @Tags events
// @Accept json
// @Param body body service.EventInput true "event"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Security BearerAuth
// @Router /api/events [post]
func (h *EventsHandler) create(c *gin.Context) {
	var in service.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	event, err := h.Events.Create(c.Request.Context(), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, event)
}

// @Summary Get an event
// @Tags events
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/events/{id} [get]
func (h *EventsHandler) get(c *gin.Context) {
	event, err := h.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, event, nil)
}

// @Summary Update an event
// @Description The previous state is kept as a new version.
// @Tags events
// @Accept json
// @Param id path string true "event id"
// @Param body body service.EventInput true "event"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/events/{id} [put]
func (h *EventsHandler) update(c *gin.Context) {
	var in service.EventInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	if in.ChangedBy == "" {
		in.ChangedBy = auth.Actor(c)
	}
	event, err := h.Events.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, event, nil)
}

// @Summary Delete an event
// @Tags events
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/events/{id} [delete]
func (h *EventsHandler) delete(c *gin.Context) {
	if err := h.Events.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": c.Param("id")}, nil)
}

// @Summary Linked and suggested related events
// @Tags events
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Router /api/events/{id}/related [get]
func (h *EventsHandler) related(c *gin.Context) {
	view, err := h.Events.Related(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, view, nil)
}

// @Summary Version history of an event
// @Tags versions
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Router /api/events/{id}/versions [get]
func (h *EventsHandler) versions(c *gin.Context) {
	items, err := h.Events.Versions(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

type versionRestoreRequest struct {
	VersionID string `json:"versionId"`
}

// @Summary Restore an event to a previous version
// @Tags versions
// @Accept json
// @Param id path string true "event id"
// @Param body body versionRestoreRequest true "version to restore"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/events/{id}/versions [post]
func (h *EventsHandler) restore(c *gin.Context) {
	var req versionRestoreRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.VersionID) == "" {
		Error(c, http.StatusBadRequest, "versionId is required", nil)
		return
	}
	res, err := h.Events.Restore(c.Request.Context(), c.Param("id"), req.VersionID, auth.Actor(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, nil)
}

// @Summary Links of an event
// @Tags links
// @Param id path string true "event id"
// @Success 200 {object} apiResponse
// @Router /api/events/{id}/links [get]
func (h *EventsHandler) links(c *gin.Context) {
	items, err := h.Events.Links(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, nil)
}

// @Summary Link two events
// @Tags links
// @Accept json
// @Param id path string true "event id"
// @Param body body service.LinkInput true "link"
// @Success 201 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Security BearerAuth
// @Router /api/events/{id}/links [post]
func (h *EventsHandler) createLink(c *gin.Context) {
	var in service.LinkInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	link, err := h.Events.CreateLink(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, link)
}

// @Summary Remove a link
// @Tags links
// @Param id path string true "event id"
// @Param linkId query string true "link id"
// @Success 200 {object} apiResponse
// @Security BearerAuth
// @Router /api/events/{id}/links [delete]
func (h *EventsHandler) deleteLink(c *gin.Context) {
	linkID := c.Query("linkId")
	if err := h.Events.DeleteLink(c.Request.Context(), c.Param("id"), linkID); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": linkID}, nil)
}
