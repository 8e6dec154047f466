package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/apikeys"
	"meditation-bot/internal/meditation"
	"meditation-bot/internal/storage"
	"meditation-bot/internal/wizard"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// statusFor maps domain errors to HTTP status codes. Unknown errors get fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, wizard.ErrStepInvalid),
		errors.Is(err, wizard.ErrUnknownMeditationType),
		errors.Is(err, wizard.ErrInvalidTempo),
		errors.Is(err, wizard.ErrUnknownGender),
		errors.Is(err, meditation.ErrUnknownBackground),
		errors.Is(err, meditation.ErrInvalidAudio),
		errors.Is(err, meditation.ErrMissingCustom):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, activity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, meditation.ErrForbidden), errors.Is(err, activity.ErrNotOrganizer):
		return http.StatusForbidden
	case errors.Is(err, activity.ErrCancelled),
		errors.Is(err, activity.ErrAlreadyJoined),
		errors.Is(err, activity.ErrNotMember):
		return http.StatusConflict
	case errors.Is(err, apikeys.ErrAllKeysExhausted), errors.Is(err, apikeys.ErrNoKeysAvailable):
		return http.StatusBadGateway
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", r.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func parseUserID(raw string, required bool) (int64, error) {
	if raw == "" {
		if required {
			return 0, badRequest("userId is required")
		}
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid userId %q", raw)
	}
	return id, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	filter := wizard.GenderFilter(r.URL.Query().Get("gender"))
	if filter == "" {
		filter = wizard.GenderAll
	}
	if !filter.Valid() {
		h.writeError(w, r, fmt.Errorf("%w: %q", wizard.ErrUnknownGender, filter), http.StatusBadRequest)
		return
	}

	voices, err := h.service.Voices(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, voices)
}

func (h *Handler) ListBackgrounds(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(mux.Vars(r)["userID"], true)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	backgrounds, err := h.service.Backgrounds(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, backgrounds)
}

type uploadResponse struct {
	Success      bool   `json:"success"`
	BackgroundID string `json:"backgroundId"`
	Filename     string `json:"filename"`
}

func (h *Handler) UploadBackground(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.writeError(w, r, badRequest("invalid multipart form: %v", err), http.StatusBadRequest)
		return
	}
	userID, err := parseUserID(r.FormValue("userId"), true)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, badRequest("file is required"), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, badRequest("could not read file: %v", err), http.StatusBadRequest)
		return
	}

	bg, err := h.service.UploadBackground(r.Context(), meditation.UploadRequest{
		UserID:      userID,
		Filename:    header.Filename,
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Success: true, BackgroundID: bg.ID, Filename: bg.Filename})
}

func (h *Handler) DeleteBackground(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUserID(r.URL.Query().Get("userId"), true)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	id := strings.TrimPrefix(mux.Vars(r)["id"], wizard.SavedPrefix)
	if err := h.service.DeleteBackground(r.Context(), userID, id); err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type textRequest struct {
	Type     string `json:"type"`
	Language string `json:"language"`
}

func (h *Handler) GenerateText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}
	text, err := h.service.GenerateText(r.Context(), wizard.MeditationType(req.Type), req.Language)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

// parseAudioForm builds the wizard data from the multipart fields through the
// same reducer the bot uses, so closed-set checks are shared.
func parseAudioForm(r *http.Request) (meditation.Request, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return meditation.Request{}, badRequest("invalid multipart form: %v", err)
	}
	userID, err := parseUserID(r.FormValue("userId"), false)
	if err != nil {
		return meditation.Request{}, err
	}

	msgs := []wizard.Msg{
		wizard.SetText{Text: r.FormValue("text")},
		wizard.SetVoice{VoiceID: r.FormValue("voiceId")},
	}
	if v := r.FormValue("meditationType"); v != "" {
		msgs = append(msgs, wizard.SetMeditationType{Type: wizard.MeditationType(v)})
	}
	if v := r.FormValue("background"); v != "" {
		msgs = append(msgs, wizard.SetBackground{Background: v})
	}
	if v := r.FormValue("useBackgroundMusic"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return meditation.Request{}, badRequest("invalid useBackgroundMusic %q", v)
		}
		msgs = append(msgs, wizard.SetUseBackgroundMusic{Enabled: enabled})
	}
	if v := r.FormValue("tempo"); v != "" {
		tempo, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return meditation.Request{}, badRequest("invalid tempo %q", v)
		}
		msgs = append(msgs, wizard.SetSpeechTempo{Tempo: tempo})
	}

	data := wizard.NewDefaultData()
	for _, msg := range msgs {
		if data, err = wizard.Reduce(data, msg); err != nil {
			return meditation.Request{}, err
		}
	}

	req := meditation.Request{UserID: userID, Language: r.FormValue("language"), Data: data}
	if req.Language == "" {
		req.Language = "en"
	}
	if file, _, err := r.FormFile("customBackground"); err == nil {
		defer file.Close()
		if req.CustomBackground, err = io.ReadAll(file); err != nil {
			return meditation.Request{}, badRequest("could not read customBackground: %v", err)
		}
	}
	return req, nil
}

func (h *Handler) GenerateAudio(w http.ResponseWriter, r *http.Request) {
	req, err := parseAudioForm(r)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}

	res, err := h.service.Generate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="meditation-%s.wav"`, res.ID))
	w.Header().Set("X-Meditation-Id", res.ID)
	w.WriteHeader(http.StatusOK)
	w.Write(res.WAV)
}

type createActivityRequest struct {
	Title           string    `json:"title"`
	OrganizerID     int64     `json:"organizerId"`
	StartsAt        time.Time `json:"startsAt"`
	MaxParticipants int       `json:"maxParticipants"`
}

type activityResponse struct {
	Activity activity.Activity `json:"activity"`
	Roster   activity.Roster   `json:"roster"`
}

type memberRequest struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.ListActivities(r.Context())
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	if activities == nil {
		activities = []activity.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req createActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Title) == "" || req.MaxParticipants < 1 || req.StartsAt.IsZero() {
		h.writeError(w, r, badRequest("title, startsAt and a positive maxParticipants are required"), http.StatusBadRequest)
		return
	}

	a := activity.Activity{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		OrganizerID: req.OrganizerID,
		StartsAt:    req.StartsAt.UTC(),
	}
	if err := h.activities.CreateActivity(r.Context(), a, req.MaxParticipants); err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	h.writeActivity(w, r, a.ID, http.StatusCreated)
}

func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	h.writeActivity(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (h *Handler) writeActivity(w http.ResponseWriter, r *http.Request, id string, status int) {
	a, err := h.activities.GetActivity(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	roster, err := h.activities.GetRoster(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, activityResponse{Activity: a, Roster: roster})
}

func (h *Handler) JoinActivity(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	roster, err := h.activities.Join(r.Context(), mux.Vars(r)["id"], activity.Member{UserID: req.UserID, Name: req.Name})
	h.writeRoster(w, r, roster, err)
}

func (h *Handler) LeaveActivity(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	roster, err := h.activities.Leave(r.Context(), mux.Vars(r)["id"], req.UserID)
	h.writeRoster(w, r, roster, err)
}

func (h *Handler) CancelActivity(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err, http.StatusBadRequest)
		return
	}
	roster, err := h.activities.Cancel(r.Context(), mux.Vars(r)["id"], req.UserID)
	h.writeRoster(w, r, roster, err)
}

func (h *Handler) writeRoster(w http.ResponseWriter, r *http.Request, roster activity.Roster, err error) {
	if err != nil {
		h.writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}
