package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"courier/internal/auth/models"
	"courier/internal/validation"
	dErrors "courier/pkg/domain-errors"
	"courier/pkg/platform/httputil"
	"courier/pkg/requestcontext"
)

// Service is the registration and login surface used by the handler.
type Service interface {
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.SignUpResult, error)
	SignIn(ctx context.Context, req models.SignInRequest) (*models.SignInResult, error)
}

type SignUpResponse struct {
	Status    string `json:"status"`
	Token     string `json:"token"`
	AvatarURL string `json:"avatarUrl"`
}

type SignInResponse struct {
	Status          string `json:"status"`
	Token           string `json:"token"`
	Email           string `json:"email"`
	AvatarURL       string `json:"avatarUrl"`
	OriginAvatarURL string `json:"originAvatarUrl"`
}

// Handler serves /sign-up and /sign-in.
type Handler struct {
	service        Service
	logger         *slog.Logger
	maxUploadBytes int64
}

func New(service Service, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Handler{service: service, logger: logger, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/sign-up", h.handleSignUp)
	r.Post("/sign-in", h.handleSignIn)
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// one extra MiB for the text fields and multipart framing
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	req, err := h.decodeSignUp(r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode sign-up form",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.SignUp(ctx, req)
	if err != nil {
		h.logFailure(ctx, "sign-up failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SignUpResponse{
		Status:    httputil.StatusSuccess,
		Token:     res.Token,
		AvatarURL: res.AvatarURL,
	})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, err := decodeSignIn(r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode sign-in body",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.SignIn(ctx, *req)
	if err != nil {
		h.logFailure(ctx, "sign-in failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SignInResponse{
		Status:          httputil.StatusSuccess,
		Token:           res.Token,
		Email:           res.Email,
		AvatarURL:       res.AvatarURL,
		OriginAvatarURL: res.OriginAvatarURL,
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	code := dErrors.CodeOf(err)
	level := slog.LevelInfo
	if !dErrors.IsClientFacing(code) {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(code),
		"error", err,
	)
}

func (h *Handler) decodeSignUp(r *http.Request) (models.SignUpRequest, error) {
	var req models.SignUpRequest
	if mediaType(r) == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return req, uploadError(err)
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	} else if err := r.ParseForm(); err != nil {
		return req, dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body could not be parsed.")
	}

	req.Email = formValue(r, validation.FieldEmail)
	req.Password = formValue(r, validation.FieldPassword)

	if r.MultipartForm == nil {
		return req, nil
	}
	headers := r.MultipartForm.File[validation.FieldAvatar]
	if len(headers) == 0 {
		return req, nil
	}
	avatar, err := readAvatar(headers[0])
	if err != nil {
		return req, uploadError(err)
	}
	req.Avatar = avatar
	return req, nil
}

func readAvatar(fh *multipart.FileHeader) (*models.Avatar, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	return &models.Avatar{Filename: fh.Filename, ContentType: contentType, Content: content}, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return dErrors.Validation(map[string]string{validation.FieldAvatar: validation.ReasonMaxSize})
	}
	return dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body could not be parsed.")
}

func decodeSignIn(r *http.Request) (*models.SignInRequest, error) {
	switch mediaType(r) {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "Request body could not be parsed.")
		}
		return &models.SignInRequest{
			Email:    formValue(r, validation.FieldEmail),
			Password: formValue(r, validation.FieldPassword),
		}, nil
	default:
		return httputil.DecodeJSON[models.SignInRequest](r)
	}
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

// formValue distinguishes an absent field (nil) from an empty one.
func formValue(r *http.Request, key string) *string {
	values, ok := r.Form[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}
