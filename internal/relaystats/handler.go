package relaystats

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/eleven-am/vision-relay/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	store  *Store
	logger *slog.Logger
}

func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/metrics", h.GetMetrics)
}

type MetricsResponse struct {
	Date    string           `json:"date"`
	Enabled bool             `json:"enabled"`
	Hours   []*HourlyMetrics `json:"hours"`
}

// GetMetrics godoc
// @Summary      Relay counters
// @Description  Returns hourly relay outcome counters for a UTC day (defaults to today)
// @Tags         metrics
// @Produce      json
// @Param        date  query  string  false  "YYYY-MM-DD"
// @Success      200  {object}  relaystats.MetricsResponse
// @Failure      400  {object}  shared.APIError
// @Failure      500  {object}  shared.APIError
// @Router       /metrics [get]
func (h *Handler) GetMetrics(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		date = h.store.now().UTC().Format(dateLayout)
	}

	hours, err := h.store.GetDay(c.Request().Context(), date)
	if errors.Is(err, ErrInvalidDate) {
		return shared.BadRequest("Invalid date, expected YYYY-MM-DD")
	}
	if err != nil {
		h.logger.Error("failed to load metrics", "error", err, "date", date)
		return shared.InternalError("Failed to load metrics", nil)
	}

	return c.JSON(http.StatusOK, MetricsResponse{
		Date:    date,
		Enabled: h.store.Enabled(),
		Hours:   hours,
	})
}
