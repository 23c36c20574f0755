package timeline

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chartspan/chartspan/internal/platform/auth"
	"github.com/chartspan/chartspan/pkg/pagination"
)

type Handler struct {
	svc          *Service
	defaultLevel Level
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, defaultLevel: LevelIndividual}
}

// SetDefaultLevel overrides the aggregation level used when a request
// does not name one.
func (h *Handler) SetDefaultLevel(level Level) {
	h.defaultLevel = level
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/patients/:id/timeline", h.GetTimeline)
	readGroup.POST("/patients/:id/timeline", h.QueryTimeline)
	readGroup.GET("/patients/:id/events", h.ResolveEvents)
	readGroup.GET("/timeline/lanes", h.GetLanes)
}

// GetTimeline builds the timeline from query-parameter criteria. The
// semantic filter needs a request body, so it is only available through
// QueryTimeline.
func (h *Handler) GetTimeline(c echo.Context) error {
	level, err := h.parseLevel(c.QueryParam("level"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	crit := Criteria{
		StartDate:   c.QueryParam("start_date"),
		EndDate:     c.QueryParam("end_date"),
		CodePattern: c.QueryParam("code_pattern"),
		Text:        c.QueryParam("q"),
		Sources:     splitCSV(c.QueryParam("sources")),
	}
	for _, lane := range splitCSV(c.QueryParam("lanes")) {
		crit.Lanes = append(crit.Lanes, Lane(lane))
	}
	if err := crit.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.BuildTimeline(c.Request().Context(), c.Param("id"), crit, level)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// TimelineRequest is the POST body carrying the full criteria, including
// the externally-supplied semantic-filter result set.
type TimelineRequest struct {
	Criteria Criteria `json:"criteria"`
	Level    string   `json:"level"`
}

func (h *Handler) QueryTimeline(c echo.Context) error {
	var req TimelineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	level, err := h.parseLevel(req.Level)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.Criteria.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.svc.BuildTimeline(c.Request().Context(), c.Param("id"), req.Criteria, level)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// ResolveEvents resolves a comma-joined id list (a tap on an aggregated
// marker) back to the underlying events.
func (h *Handler) ResolveEvents(c echo.Context) error {
	ids := splitCSV(c.QueryParam("ids"))
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "ids is required")
	}

	events, err := h.svc.ResolveEvents(c.Request().Context(), c.Param("id"), ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pg := pagination.FromContext(c)
	total := len(events)
	if pg.Offset >= total {
		events = nil
	} else {
		end := pg.Offset + pg.Limit
		if end > total {
			end = total
		}
		events = events[pg.Offset:end]
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetLanes(c echo.Context) error {
	return c.JSON(http.StatusOK, Lanes())
}

func (h *Handler) parseLevel(token string) (Level, error) {
	if token == "" {
		return h.defaultLevel, nil
	}
	return ParseLevel(token)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
