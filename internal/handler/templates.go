package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chronicle/internal/service"
)

type TemplatesHandler struct {
	Templates *service.TemplateService
}

func (h *TemplatesHandler) Register(r gin.IRouter) {
	g := r.Group("/templates")
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

// @Summary List event templates
// @Description Built-in templates first, then by name.
// @Tags templates
// @Success 200 {object} apiResponse
// @Router /api/templates [get]
func (h *TemplatesHandler) list(c *gin.Context) {
	items, err := h.Templates.List(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, items, map[string]any{"total": len(items)})
}

// @Summary Create an event template
// @Tags templates
// @Accept json
// @Param body body service.TemplateInput true "template"
// @Success 201 {object} apiResponse
// @Failure 400 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Security BearerAuth
// @Router /api/templates [post]
func (h *TemplatesHandler) create(c *gin.Context) {
	var in service.TemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	t, err := h.Templates.Create(c.Request.Context(), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, t)
}

// @Summary Get an event template
// @Tags templates
// @Param id path string true "template id"
// @Success 200 {object} apiResponse
// @Failure 404 {object} apiResponse
// @Router /api/templates/{id} [get]
func (h *TemplatesHandler) get(c *gin.Context) {
	t, err := h.Templates.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, t, nil)
}

// @Summary Update an event template
// @Tags templates
// @Accept json
// @Param id path string true "template id"
// @Param body body service.TemplateInput true "template"
// @Success 200 {object} apiResponse
// @Failure 409 {object} apiResponse
// @Security BearerAuth
// @Router /api/templates/{id} [put]
func (h *TemplatesHandler) update(c *gin.Context) {
	var in service.TemplateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	t, err := h.Templates.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, t, nil)
}

// @Summary Delete an event template
// @Tags templates
// @Param id path string true "template id"
// @Success 200 {object} apiResponse
// @Failure 403 {object} apiResponse
// @Security BearerAuth
// @Router /api/templates/{id} [delete]
func (h *TemplatesHandler) delete(c *gin.Context) {
	if err := h.Templates.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	Ok(c, gin.H{"deleted": c.Param("id")}, nil)
}
