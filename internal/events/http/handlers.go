package eventshttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/odyssey-erp/roofing-ledger/internal/events"
	"github.com/odyssey-erp/roofing-ledger/internal/events/relay"
	"github.com/odyssey-erp/roofing-ledger/internal/platform/httpx"
)

const (
	defaultFeedSize = 50
	maxFeedSize     = 500
)

// Inspector is the read side of the bus used by the handlers.
type Inspector interface {
	GetEvents(pattern string) []events.Event
	DebugInfo() events.DebugInfo
}

// Feed returns relayed envelopes, newest first.
type Feed interface {
	Recent(ctx context.Context, n int) ([]relay.Envelope, error)
}

// Handler serves event history and bus diagnostics.
type Handler struct {
	logger *slog.Logger
	bus    Inspector
	feed   Feed
}

// NewHandler constructs the handler. feed may be nil when no Redis relay is
// configured.
func NewHandler(logger *slog.Logger, bus Inspector, feed Feed) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, bus: bus, feed: feed}
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	history := h.bus.GetEvents(q.Get("pattern"))
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		if len(history) > limit {
			history = history[len(history)-limit:]
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"events": history,
		"count":  len(history),
	})
}

func (h *Handler) handleCatalogue(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events.Catalogue})
}

func (h *Handler) handleDebug(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.bus.DebugInfo())
}

func (h *Handler) handleFeed(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "event relay feed is not configured")
		return
	}
	n := defaultFeedSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be a positive integer")
			return
		}
		n = min(v, maxFeedSize)
	}
	envelopes, err := h.feed.Recent(r.Context(), n)
	if err != nil {
		h.logger.Error("read event feed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Feed Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": envelopes})
}
