package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sagarc03/mdedge/convert"
)

// maxEventBody bounds a notification payload.
const maxEventBody = 1 << 20

// EventsResponse summarizes a delivered notification.
type EventsResponse struct {
	convert.Counts
	Errors []string `json:"errors,omitempty"`
}

// EventsHandler receives S3 notifications (AWS format, also sent by MinIO
// webhooks) and runs them through a BatchHandler synchronously. Any failed
// event turns the response into a 500 so the sender redelivers.
type EventsHandler struct {
	handler convert.BatchHandler
}

func NewEventsHandler(handler convert.BatchHandler) *EventsHandler {
	return &EventsHandler{handler: handler}
}

// Router mounts POST /events.
func (h *EventsHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Post("/events", h.ServeHTTP)
	return r
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ev events.S3Event
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventBody)).Decode(&ev); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_event", "Invalid notification payload")
		return
	}

	res := h.handler.Handle(r.Context(), convert.FromS3Event(ev))

	resp := EventsResponse{Counts: res.Counts()}
	for _, rr := range res {
		if rr.Err != nil {
			resp.Errors = append(resp.Errors, rr.Err.Error())
		}
	}

	code := http.StatusOK
	if resp.Failed > 0 {
		code = http.StatusInternalServerError
		slog.WarnContext(r.Context(), "notification had failed events", "failed", resp.Failed)
	}

	_ = WriteJSON(w, code, resp)
}
