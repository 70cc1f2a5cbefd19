package handler

import (
	"github.com/gin-gonic/gin"

	"chronicle/internal/service"
)

// DocumentsHandler serves export and report downloads. Responses are raw
// files, not the JSON envelope.
type DocumentsHandler struct {
	Export *service.ExportService
	Report *service.ReportService
}

func (h *DocumentsHandler) Register(r gin.IRouter) {
	r.GET("/export", h.export)
	r.GET("/report", h.report)
}

// @Summary Export events
// @Tags export
// @Produce json,text/markdown,text/csv
// @Param format query string false "json|markdown|csv" default(json)
// @Param category query string false "category or all"
// @Param startDate query string false "start date"
// @Param endDate query string false "end date"
// @Success 200 {file} file
// @Router /api/export [get]
func (h *DocumentsHandler) export(c *gin.Context) {
	start, err := dateQuery(c, "startDate", false)
	if err != nil {
		Fail(c, err)
		return
	}
	end, err := dateQuery(c, "endDate", true)
	if err != nil {
		Fail(c, err)
		return
	}
	doc, err := h.Export.Export(c.Request.Context(), service.ExportParams{
		Format:    c.DefaultQuery("format", service.FormatJSON),
		Category:  stringQuery(c, "category"),
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	download(c, doc)
}

// @Summary Period report
// @Tags export
// @Produce html,text/markdown,json
// @Param format query string false "html|markdown|json" default(html)
// @Param period query string false "week|month|quarter|year|all|custom" default(month)
// @Param startDate query string false "custom period start"
// @Param endDate query string false "custom period end"
// @Param category query string false "category"
// @Param includeStats query bool false "append summary counts"
// @Success 200 {file} file
// @Router /api/report [get]
func (h *DocumentsHandler) report(c *gin.Context) {
	start, err := dateQuery(c, "startDate", false)
	if err != nil {
		Fail(c, err)
		return
	}
	end, err := dateQuery(c, "endDate", true)
	if err != nil {
		Fail(c, err)
		return
	}
	category := stringQuery(c, "category")
	if category != nil && *category == "all" {
		category = nil
	}
	doc, err := h.Report.Render(c.Request.Context(), service.ReportParams{
		Format:       c.Query("format"),
		Period:       c.Query("period"),
		StartDate:    start,
		EndDate:      end,
		Category:     category,
		IncludeStats: boolQuery(c, "includeStats"),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	download(c, doc)
}
