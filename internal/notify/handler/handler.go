package handler

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"courier/internal/notify"
	"courier/internal/validation"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/httputil"
	"courier/pkg/requestcontext"
)

// Service runs the notify pipeline.
type Service interface {
	Notify(ctx context.Context, payload validation.Payload) (*notify.Result, error)
}

type NotifyResponse struct {
	Status string `json:"status"`
	Number int    `json:"number"`
}

// Handler serves /notify and its /github-emails alias. Authentication is the
// router's job.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/notify", h.handleNotify)
	r.Post("/github-emails", h.handleNotify)
}

func (h *Handler) handleNotify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	payload, err := decodePayload(r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode notify body",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Notify(ctx, payload)
	if err != nil {
		// the service already logged the failed stage
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, NotifyResponse{
		Status: httputil.StatusSuccess,
		Number: res.Number,
	})
}

// decodePayload accepts a JSON object or form fields. A repeated form field
// becomes a list.
func decodePayload(r *http.Request) (validation.Payload, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch strings.ToLower(mt) {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body could not be parsed.")
		}
		payload := validation.Payload{}
		for _, field := range []string{validation.FieldUsername, validation.FieldMessage} {
			values, ok := r.Form[field]
			switch {
			case !ok || len(values) == 0:
			case len(values) == 1:
				payload[field] = values[0]
			default:
				payload[field] = values
			}
		}
		return payload, nil
	default:
		body, err := httputil.DecodeJSON[map[string]any](r)
		if err != nil {
			return nil, err
		}
		if *body == nil {
			return validation.Payload{}, nil
		}
		return validation.Payload(*body), nil
	}
}
