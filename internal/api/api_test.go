package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"meditation-bot/internal/activity"
	"meditation-bot/internal/audio"
	"meditation-bot/internal/broker"
	"meditation-bot/internal/meditation"
	"meditation-bot/internal/models"
	"meditation-bot/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeText struct{}

func (fakeText) GenerateMeditationText(_ context.Context, meditationType, language string) (string, error) {
	return meditationType + "/" + language, nil
}

type fakeSpeech struct{}

func (fakeSpeech) ListVoices(context.Context) ([]models.Voice, error) {
	return []models.Voice{
		{VoiceID: "v1", Name: "Anna", Gender: "female"},
		{VoiceID: "v2", Name: "Ben", Gender: "male"},
	}, nil
}

func (fakeSpeech) TextToSpeech(context.Context, string, string, float64) ([]byte, error) {
	return []byte{0x00, 0x08, 0x00, 0x08}, nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, broker.ErrObjectNotFound
	}
	return d, nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func testWAV(t *testing.T) []byte {
	t.Helper()
	data, err := audio.EncodeWAV(make([]float32, 480))
	require.NoError(t, err)
	return data
}

func newTestRouter(t *testing.T) (http.Handler, *storage.Storage) {
	t.Helper()
	logger := zap.NewNop()

	db, err := storage.New(filepath.Join(t.TempDir(), "api.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocean.wav"), testWAV(t), 0o600))

	service := meditation.NewService(fakeText{}, fakeSpeech{}, &memBlobs{data: map[string][]byte{}}, db, nil, dir, logger)
	return NewRouter(service, db, logger), db
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile(name, name+".wav")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListVoices_GenderFilter(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, httptest.NewRequest(http.MethodGet, "/api/voices?gender=male", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var voices []models.Voice
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voices))
	require.Len(t, voices, 1)
	assert.Equal(t, "v2", voices[0].VoiceID)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/voices?gender=robot", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateText(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, jsonRequest(http.MethodPost, "/api/meditations/text", `{"type":"focus","language":"de"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"text":"focus/de"}`, rec.Body.String())

	rec = do(t, h, jsonRequest(http.MethodPost, "/api/meditations/text", `{"type":"yoga"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBackgroundUploadListDelete(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := do(t, h, multipartRequest(t, "/api/backgrounds", map[string]string{"userId": "5", "name": "Waves"}, map[string][]byte{"file": []byte("not audio")}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, multipartRequest(t, "/api/backgrounds", map[string]string{"userId": "5", "name": "Waves"}, map[string][]byte{"file": testWAV(t)}))
	require.Equal(t, http.StatusCreated, rec.Code)
	var up uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	assert.True(t, up.Success)
	assert.Equal(t, "file.wav", up.Filename)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/users/5/backgrounds", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.Background
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Waves", list[len(list)-1].CustomName)
	assert.False(t, list[len(list)-1].IsSystemBackground)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/backgrounds/"+up.BackgroundID+"?userId=6", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/backgrounds/"+up.BackgroundID+"?userId=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/backgrounds/"+up.BackgroundID+"?userId=5", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGenerateAudio(t *testing.T) {
	h, _ := newTestRouter(t)
	fields := map[string]string{
		"text":           strings.Repeat("relax ", 60),
		"voiceId":        "v1",
		"meditationType": "sleep",
		"background":     "ocean",
		"tempo":          "0.90",
		"language":       "en",
		"userId":         "1",
	}

	rec := do(t, h, multipartRequest(t, "/api/meditations/audio", fields, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String()[:4])

	fields["tempo"] = "0.93"
	rec = do(t, h, multipartRequest(t, "/api/meditations/audio", fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields["tempo"] = "1.00"
	fields["text"] = "too short"
	rec = do(t, h, multipartRequest(t, "/api/meditations/audio", fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields["text"] = strings.Repeat("relax ", 60)
	fields["background"] = "custom"
	rec = do(t, h, multipartRequest(t, "/api/meditations/audio", fields, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, multipartRequest(t, "/api/meditations/audio", fields, map[string][]byte{"customBackground": testWAV(t)}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActivityLifecycle(t *testing.T) {
	h, _ := newTestRouter(t)
	startsAt := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)

	rec := do(t, h, jsonRequest(http.MethodPost, "/api/activities", `{"title":"Morning sit","organizerId":1,"maxParticipants":1,"startsAt":"`+startsAt+`"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created activityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Activity.ID
	require.NotEmpty(t, id)

	roster := func(rec *httptest.ResponseRecorder) activity.Roster {
		t.Helper()
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var r activity.Roster
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
		return r
	}

	roster(do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/join", `{"userId":2,"name":"P1"}`)))
	r := roster(do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/join", `{"userId":3,"name":"W1"}`)))
	require.Len(t, r.Waitlist, 1)

	rec = do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/join", `{"userId":3,"name":"W1"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	r = roster(do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/leave", `{"userId":2}`)))
	require.Len(t, r.Participants, 1)
	assert.Equal(t, int64(3), r.Participants[0].UserID)
	assert.Empty(t, r.Waitlist)

	rec = do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/cancel", `{"userId":3}`))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	r = roster(do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/cancel", `{"userId":1}`)))
	assert.True(t, r.Cancelled)

	rec = do(t, h, jsonRequest(http.MethodPost, "/api/activities/"+id+"/join", `{"userId":4,"name":"Late"}`))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/activities/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := NewServer(ln.Addr().String(), mux, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	transport := &http.Transport{DisableKeepAlives: true}
	client := &http.Client{Transport: transport, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	transport.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
