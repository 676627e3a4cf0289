package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/herohuhu666/wanwu/internal/adapters/db/memory"
	"github.com/herohuhu666/wanwu/internal/application"
	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCompleter struct{ fail bool }

func (c echoCompleter) Chat(_ context.Context, messages []domain.ChatMessage, _ domain.CompletionOptions) (domain.Completion, error) {
	if c.fail {
		return domain.Completion{}, errors.New("upstream down")
	}
	return domain.Completion{Content: "回声：" + messages[len(messages)-1].Content}, nil
}

func (c echoCompleter) Describe(_ context.Context, url, _ string) (domain.Completion, error) {
	if c.fail {
		return domain.Completion{}, errors.New("upstream down")
	}
	return domain.Completion{Content: "见 " + url}, nil
}

type memStore struct{ keys []string }

func (s *memStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.keys = append(s.keys, key)
	return "http://test/uploads/" + key, nil
}

func newTestRouter(t *testing.T, completer domain.ChatCompleter, uploads string) http.Handler {
	t.Helper()
	profile, err := application.NewProfileService(context.Background(), memory.NewRepository())
	require.NoError(t, err)
	services := application.Services{
		Profile: profile,
		Ritual:  application.NewRitualService(profile, application.WithAutoDelay(0)),
		Oracle:  application.NewOracleService(completer, &memStore{}, zerolog.Nop()),
	}
	return NewRouter(services, zerolog.Nop(), uploads)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProfileAndMeritEndpoints(t *testing.T) {
	h := newTestRouter(t, echoCompleter{}, "")

	rec := do(t, h, http.MethodGet, "/api/destiny/today", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/profile/login", map[string]string{
		"nickname": "A", "birthDate": "2000-01-01", "birthTime": "08:00", "birthCity": "X",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 111, snap.Merit)

	rec = do(t, h, http.MethodPost, "/api/merit/consume", map[string]any{"amount": 500, "desc": "太多"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/merit/consume", map[string]any{"amount": 11, "desc": "供灯"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"consumed":true,"balance":100}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/merit/add", map[string]any{"amount": 0, "type": "share"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/guardian/checkin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/guardian/checkin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already checked in today")

	rec = do(t, h, http.MethodPost, "/api/energy", map[string]string{"action": "guardian_late"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/energy", map[string]string{"action": "dance"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/destiny/today", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/destiny/forecast", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var forecast []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forecast))
	assert.Len(t, forecast, 7)

	rec = do(t, h, http.MethodPost, "/api/profile/login", strings.Repeat("x", 3))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRitualEndpoints(t *testing.T) {
	h := newTestRouter(t, echoCompleter{}, "")

	rec := do(t, h, http.MethodPost, "/api/rituals", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var session application.RitualSession
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = do(t, h, http.MethodGet, "/api/rituals/open", nil)
	assert.Contains(t, rec.Body.String(), session.ID)

	for i := 0; i < 6; i++ {
		rec = do(t, h, http.MethodPost, "/api/rituals/"+session.ID+"/shake", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, application.RitualResolved, session.State)

	rec = do(t, h, http.MethodPost, "/api/rituals/"+session.ID+"/shake", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/rituals/cast", map[string]any{"question": "行止", "auto": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/rituals", nil)
	var history []domain.RitualRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history, 2)

	rec = do(t, h, http.MethodGet, "/api/archives", nil)
	var archives []domain.ArchiveEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archives))
	assert.Len(t, archives, 2)
}

func TestQwenEndpoints(t *testing.T) {
	h := newTestRouter(t, echoCompleter{}, "")

	rec := do(t, h, http.MethodPost, "/api/qwen/chat", map[string]any{
		"messages": []map[string]string{{"role": "user", "content": "问道"}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var chat application.ChatResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chat))
	assert.True(t, chat.Success)
	assert.Equal(t, "回声：问道", chat.Message)

	rec = do(t, h, http.MethodPost, "/api/qwen/chat", map[string]any{"messages": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	png := "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
	rec = do(t, h, http.MethodPost, "/api/qwen/vision", map[string]string{"imageData": png})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var vision application.VisionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &vision))
	assert.True(t, vision.Success)
	assert.True(t, strings.HasPrefix(vision.ImageURL, "http://test/uploads/zhiwu/"))
	assert.True(t, strings.HasSuffix(vision.ImageURL, ".png"))

	rec = do(t, h, http.MethodPost, "/api/qwen/divination", map[string]string{"imageData": png})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	failing := newTestRouter(t, echoCompleter{fail: true}, "")
	rec = do(t, failing, http.MethodPost, "/api/qwen/divination", map[string]string{"imageData": png, "eventDescription": "搬家"})
	require.Equal(t, http.StatusOK, rec.Code)
	var div application.DivinationResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &div))
	assert.False(t, div.Success)
	assert.Equal(t, application.DivinationFallback, div.Analysis)
}

func TestOperationalEndpoints(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "zhiwu"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zhiwu", "a.txt"), []byte("灵"), 0o644))
	h := newTestRouter(t, echoCompleter{}, dir)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/uploads/zhiwu/a.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "灵", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wanwu_request_duration_seconds")
}

func TestRecovererReturnsJSON(t *testing.T) {
	h := &Handler{log: zerolog.Nop()}
	panicky := h.recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	panicky.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestDecisionCatalogAndExportEndpoints(t *testing.T) {
	h := newTestRouter(t, echoCompleter{}, "")

	rec := do(t, h, http.MethodPost, "/api/profile/login", map[string]string{
		"nickname": "A", "birthDate": "2000-01-01", "birthTime": "08:00", "birthCity": "X",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/rituals/decide", map[string]string{"question": "签约"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var decision application.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.Equal(t, 106, decision.Balance)
	assert.Equal(t, "暂缓行动，静待良机", decision.Record.Note)

	rec = do(t, h, http.MethodPost, "/api/rituals/decide", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/merit/consume", map[string]any{"amount": 102, "desc": "供灯"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/api/rituals/decide", map[string]string{"question": "签约"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/hexagrams/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entry application.HexagramEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "坤", entry.Name)
	assert.Len(t, entry.Commentary, 6)

	rec = do(t, h, http.MethodGet, "/api/hexagrams/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/hexagrams/qian", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/hexagrams", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var catalog []application.HexagramEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &catalog))
	assert.Len(t, catalog, 64)

	rec = do(t, h, http.MethodGet, "/api/state/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var export application.StateExport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &export))
	assert.JSONEq(t, `4`, string(export.Entries["merit"]))
	assert.Contains(t, export.Entries, "profile")
}

func TestRouteLabelIsBounded(t *testing.T) {
	assert.Equal(t, "GET /api/hexagrams/{id}", routeLabel(http.MethodGet, "/api/hexagrams/{id}"))
	assert.Equal(t, "unknown", routeLabel(http.MethodGet, ""))
	assert.Equal(t, "unknown", routeLabel("PROPFIND", "/api/profile"))
}
