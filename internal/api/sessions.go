package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tay-dev-lab/voice-to-invoice/internal/domain"
	"github.com/tay-dev-lab/voice-to-invoice/internal/flow"
	"github.com/tay-dev-lab/voice-to-invoice/internal/session"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// sessionView is the progress representation returned to clients. The
// token is only populated on start and reset responses.
type sessionView struct {
	SessionID       string      `json:"session_id"`
	Step            domain.Step `json:"step"`
	Prompt          string      `json:"prompt"`
	ReferenceNumber string      `json:"reference_number"`
	ClientInfoSet   bool        `json:"client_info_set"`
	DetailsSet      bool        `json:"invoice_details_set"`
	ItemCount       int         `json:"item_count"`
	Done            bool        `json:"done"`
	CanGenerate     bool        `json:"can_generate"`
	Token           string      `json:"token,omitempty"`
}

func (h *Handler) view(sess *domain.Session, includeToken bool) sessionView {
	v := sessionView{
		SessionID:       sess.SessionID,
		Step:            sess.Step,
		Prompt:          flow.UserPrompt(sess.Step),
		ReferenceNumber: sess.ReferenceNumber,
		ClientInfoSet:   sess.ClientInfo != nil,
		DetailsSet:      sess.Details != nil,
		ItemCount:       len(sess.Items),
		Done:            sess.Terminal(),
		CanGenerate:     h.sessions.CanGenerate(sess),
	}
	if includeToken {
		v.Token = sess.Token
	}
	return v
}

// RegisterRoutes wires the session endpoints onto the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions/{sessionID}", func(r chi.Router) {
		r.Post("/start", h.StartSession)
		r.Get("/", h.GetSession)
		r.Post("/steps", h.SubmitStep)
		r.Post("/reset", h.ResetSession)
		r.Post("/invoice", h.GenerateInvoice)
	})
}

func sessionIDFromRequest(r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	if !sessionIDPattern.MatchString(id) {
		return "", false
	}
	return id, true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// StartSession mints a fresh session token and begins the flow. Any
// token issued earlier for the same session stops working.
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := h.sessions.Start(r.Context(), id)
	if err != nil {
		slog.Error("failed to start session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	// The start step carries no data; move straight to the first
	// question so the client gets an actionable prompt.
	if sess.Step == domain.StepStart {
		if _, err := h.sessions.Advance(r.Context(), sess); err != nil {
			slog.Error("failed to advance past start", "session_id", id, "error", err)
			Error(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	JSON(w, http.StatusOK, h.view(sess, true))
}

// GetSession returns the session's progress without its token.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := h.sessions.GetOrCreate(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, h.view(sess, false))
}

// ResetSession reinitializes the session and mints a new token.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := h.sessions.Reset(r.Context(), id)
	if err != nil {
		slog.Error("failed to reset session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, h.view(sess, true))
}

// stepReply is the success payload for a step submission.
type stepReply struct {
	SessionID   string      `json:"session_id"`
	Step        domain.Step `json:"step"`
	Prompt      string      `json:"prompt"`
	Transcript  string      `json:"transcript"`
	Done        bool        `json:"done"`
	CanGenerate bool        `json:"can_generate"`
}

// stepRetry is the payload for a validation failure: the step has not
// advanced and the user should try again.
type stepRetry struct {
	Error   string      `json:"error"`
	Step    domain.Step `json:"step"`
	Example string      `json:"example,omitempty"`
	Prompt  string      `json:"prompt"`
}

// SubmitStep accepts either a recorded audio clip (multipart field
// "file") or a raw transcript (JSON body), extracts the current step's
// value via the LLM, and advances the flow on success.
func (h *Handler) SubmitStep(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := h.sessions.GetOrCreate(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !h.sessions.Authorize(sess, bearerToken(r)) {
		Error(w, http.StatusUnauthorized, "missing or invalid session token")
		return
	}

	transcript, ok := h.transcript(w, r)
	if !ok {
		return
	}

	step := sess.Step
	extracted, err := h.speech.Complete(r.Context(), flow.ExtractionPrompt(step, transcript))
	if err != nil {
		slog.Error("completion failed", "session_id", id, "step", step, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.sessions.SubmitStepResult(r.Context(), sess, step, extracted); err != nil {
		var verr *flow.ValidationError
		switch {
		case errors.As(err, &verr):
			JSON(w, http.StatusUnprocessableEntity, stepRetry{
				Error:   verr.Message,
				Step:    verr.Step,
				Example: verr.Example,
				Prompt:  flow.UserPrompt(verr.Step),
			})
		case errors.Is(err, session.ErrSessionComplete), errors.Is(err, session.ErrStepMismatch):
			Error(w, http.StatusConflict, err.Error())
		default:
			slog.Error("failed to store step result", "session_id", id, "step", step, "error", err)
			Error(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	next, err := h.sessions.Advance(r.Context(), sess)
	if err != nil {
		slog.Error("failed to advance session", "session_id", id, "step", step, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, stepReply{
		SessionID:   sess.SessionID,
		Step:        next,
		Prompt:      flow.UserPrompt(next),
		Transcript:  transcript,
		Done:        sess.Terminal(),
		CanGenerate: h.sessions.CanGenerate(sess),
	})
}

// transcript pulls the step input out of the request: an uploaded audio
// clip is transcribed, a JSON body is used as-is. Replies with an error
// itself when the second return is false.
func (h *Handler) transcript(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("file")
		if err != nil {
			Error(w, http.StatusBadRequest, "audio upload requires a 'file' field")
			return "", false
		}
		defer file.Close()

		transcript, err := h.speech.Transcribe(r.Context(), filepath.Base(header.Filename), file)
		if err != nil {
			slog.Error("transcription failed", "error", err)
			Error(w, http.StatusInternalServerError, "internal error")
			return "", false
		}
		if transcript == "" {
			Error(w, http.StatusBadRequest, "could not hear anything in the recording")
			return "", false
		}
		return transcript, true
	}

	var payload struct {
		Transcript string `json:"transcript"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Error(w, http.StatusBadRequest, "body must be multipart audio or JSON with a 'transcript' field")
		return "", false
	}
	payload.Transcript = strings.TrimSpace(payload.Transcript)
	if payload.Transcript == "" {
		Error(w, http.StatusBadRequest, "transcript cannot be empty")
		return "", false
	}
	return payload.Transcript, true
}

// GenerateInvoice renders the PDF for a completed session and returns
// the file. 409 when the flow has not finished.
func (h *Handler) GenerateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionIDFromRequest(r)
	if !ok {
		Error(w, http.StatusBadRequest, "invalid session id")
		return
	}

	sess, err := h.sessions.GetOrCreate(r.Context(), id)
	if err != nil {
		slog.Error("failed to load session", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !h.sessions.Authorize(sess, bearerToken(r)) {
		Error(w, http.StatusUnauthorized, "missing or invalid session token")
		return
	}

	inv := h.sessions.Assemble(sess)
	if inv == nil {
		JSON(w, http.StatusConflict, map[string]interface{}{
			"error": "invoice is not ready; the session has not completed all steps",
			"step":  sess.Step,
		})
		return
	}

	path, err := h.renderer.Render(inv)
	if err != nil {
		slog.Error("failed to render invoice", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.repo.SaveInvoice(r.Context(), id, inv, path); err != nil {
		slog.Error("failed to save invoice", "session_id", id, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}
