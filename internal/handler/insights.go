package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"chronicle/internal/repository"
	"chronicle/internal/service"
)

// InsightsHandler serves the read-only views over the timeline: search,
// statistics and on-this-day.
type InsightsHandler struct {
	Search *service.SearchService
	Stats  *service.StatsService
	Events *service.EventService
}

func (h *InsightsHandler) Register(r gin.IRouter) {
	r.GET("/search", h.search)
	r.GET("/stats", h.stats)
	r.GET("/on-this-day", h.onThisDay)
}

// @Summary Search events with facets
// @Tags search
// @Param q query string false "text"
// @Param category query string false "category"
// @Param source query string false "source"
// @Param tag query []string false "tags, any match" collectionFormat(multi)
// @Param service query []string false "services, any match" collectionFormat(multi)
// @Param node query string false "infrastructure node"
// @Param startDate query string false "YYYY-MM-DD or RFC 3339"
// @Param endDate query string false "YYYY-MM-DD or RFC 3339"
// @Param limit query int false "limit" default(50)
// @Param offset query int false "offset"
// @Success 200 {object} apiResponse
// @Router /api/search [get]
func (h *InsightsHandler) search(c *gin.Context) {
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
	params := repository.ListEventsParams{
		Limit:     intQuery(c, "limit", 50),
		Offset:    intQuery(c, "offset", 0),
		Search:    stringQuery(c, "q"),
		Category:  stringQuery(c, "category"),
		Source:    stringQuery(c, "source"),
		Tags:      listQuery(c, "tag"),
		Services:  listQuery(c, "service"),
		Node:      stringQuery(c, "node"),
		StartDate: start,
		EndDate:   end,
	}
	res, err := h.Search.Search(c.Request.Context(), params)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, res, map[string]any{"limit": params.Limit, "offset": params.Offset})
}

// @Summary Timeline statistics
// @Tags stats
// @Param period query string false "week|month|quarter|year|all" default(all)
// @Success 200 {object} apiResponse
// @Router /api/stats [get]
func (h *InsightsHandler) stats(c *gin.Context) {
	stats, err := h.Stats.Compute(c.Request.Context(), c.Query("period"))
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, stats, nil)
}

// @Summary Events that happened on this calendar day in earlier years
// @Tags stats
// @Param date query string false "reference date, defaults to today"
// @Success 200 {object} apiResponse
// @Router /api/on-this-day [get]
func (h *InsightsHandler) onThisDay(c *gin.Context) {
	target := time.Now()
	if d, err := dateQuery(c, "date", false); err != nil {
		Fail(c, err)
		return
	} else if d != nil {
		target = *d
	}
	view, err := h.Events.OnThisDay(c.Request.Context(), target)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, view, nil)
}
