// File: internal/infra/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// allowedAudioTypes is the upload content-type allowlist.
var allowedAudioTypes = map[string]bool{
	"audio/webm": true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/mpeg": true,
}

// Server exposes the intake API: audio upload, request creation, status reads.
type Server struct {
	uc            usecase.RequestUseCase
	maxAudioBytes int64
	log           *zerolog.Logger
}

func NewServer(uc usecase.RequestUseCase, maxAudioMB int, logger *zerolog.Logger) *Server {
	if maxAudioMB <= 0 {
		maxAudioMB = 25
	}
	return &Server{
		uc:            uc,
		maxAudioBytes: int64(maxAudioMB) << 20,
		log:           logger,
	}
}

// Router builds the chi mux with the full middleware stack.
func (s *Server) Router(corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(RequestContext())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))
	r.Use(Timeout(30 * time.Second))
	if len(corsOrigins) > 0 {
		r.Use(CORS(corsOrigins))
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/audio", s.handleUploadAudio)
		r.Post("/requests", s.handleCreateRequest)
		r.Get("/requests/{id}", s.handleGetRequest)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.CheckReady(r.Context()); err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "not_ready", "backing store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type audioResponse struct {
	ID          string `json:"id"`
	StoragePath string `json:"storage_path"`
	ContentType string `json:"content_type"`
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request) {
	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !allowedAudioTypes[contentType] {
		writeError(w, r, http.StatusUnsupportedMediaType, "unsupported_media_type",
			"content type must be one of audio/webm, audio/ogg, audio/wav, audio/mpeg")
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.maxAudioBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "audio upload exceeds the size limit")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid_request", "could not read request body")
		return
	}
	if len(data) == 0 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "empty audio upload")
		return
	}

	asset, err := s.uc.CreateAudioAsset(r.Context(), contentType, data)
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, audioResponse{ID: asset.ID, StoragePath: asset.StoragePath, ContentType: asset.ContentType})
}

type createRequestBody struct {
	Email   string `json:"email"`
	AudioID string `json:"audio_id"`
	SendAt  string `json:"send_at"`
}

type requestResponse struct {
	ID     string    `json:"id"`
	Status string    `json:"status"`
	SendAt time.Time `json:"send_at"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "request body must be JSON")
		return
	}

	var sendAt *time.Time
	if body.SendAt != "" {
		at, err := time.Parse(time.RFC3339, body.SendAt)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "send_at must be RFC3339")
			return
		}
		sendAt = &at
	}

	req, err := s.uc.CreateSummaryRequest(r.Context(), body.Email, body.AudioID, sendAt)
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, requestResponse{ID: req.ID, Status: string(req.Status), SendAt: req.SendAt})
}

type requestDetail struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	Status         string         `json:"status"`
	SendAt         time.Time      `json:"send_at"`
	Attempts       int            `json:"attempts"`
	LastError      string         `json:"last_error,omitempty"`
	Summary        *model.Summary `json:"summary,omitempty"`
	TranscriptText string         `json:"transcript_text,omitempty"`
}

func (s *Server) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := s.uc.GetSummaryRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeUsecaseError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, requestDetail{
		ID:             req.ID,
		Email:          req.Email,
		Status:         string(req.Status),
		SendAt:         req.SendAt,
		Attempts:       req.Attempts,
		LastError:      req.LastError,
		Summary:        req.Summary,
		TranscriptText: req.TranscriptText,
	})
}

func (s *Server) writeUsecaseError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "no such request")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "conflict", "resource already exists")
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:      code,
		Message:   message,
		RequestID: chimw.GetReqID(r.Context()),
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
