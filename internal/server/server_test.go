package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"document-qa/internal/chunking"
	"document-qa/internal/rag"
	"document-qa/internal/sessions"
	"document-qa/internal/vectorstore"
)

// letterEmbedder maps text to letter frequencies, so identical text has
// distance zero.
type letterEmbedder struct{}

func (letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 26)
	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e letterEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e letterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (letterEmbedder) Dimensions() int { return 26 }

type testServer struct {
	router   *gin.Engine
	inputDir string
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	base := t.TempDir()
	inputDir := filepath.Join(base, "input")
	require.NoError(t, os.MkdirAll(inputDir, 0o755))

	store, err := vectorstore.Open(filepath.Join(base, "vector_db"), letterEmbedder{})
	require.NoError(t, err)
	chatStore, err := sessions.NewFileStore(filepath.Join(base, "chat_sessions"))
	require.NoError(t, err)

	engine := chunking.NewEngine(filepath.Join(base, "chunk_config.json"))
	router := NewRouter(Deps{
		GinMode:  gin.TestMode,
		InputDir: inputDir,
		Ingestor: rag.NewIngestor(engine, store),
		Store:    store,
		Chat:     rag.NewChatService(rag.NewAnswerer(store), chatStore),
	})
	return &testServer{router: router, inputDir: inputDir}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	var body map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	}
	return w, body
}

func (s *testServer) upload(t *testing.T, name, content string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(t, req)
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestServer_Root(t *testing.T) {
	s := setupTestServer(t)
	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Preflight(t *testing.T) {
	s := setupTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/rag_query", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_QueryBeforeIngest(t *testing.T) {
	s := setupTestServer(t)
	w, body := s.do(t, jsonRequest(http.MethodPost, "/rag_query", `{"question": "anything"}`))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, body["error"], "not initialized")
}

func TestServer_UploadAndQuery(t *testing.T) {
	s := setupTestServer(t)

	w, body := s.upload(t, "notes.txt", "warranty lasts two years")
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "notes.txt", body["filename"])
	assert.EqualValues(t, 1, body["chunks"])
	assert.EqualValues(t, 1, body["added"])
	assert.FileExists(t, filepath.Join(s.inputDir, "notes.txt"))

	w, body = s.upload(t, "notes.txt", "warranty lasts two years")
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["added"])
	assert.EqualValues(t, 1, body["skipped"])

	w, body = s.do(t, jsonRequest(http.MethodPost, "/rag_query?session_id=undefined", `{"question": "warranty lasts two years"}`))
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, "warranty lasts two years", body["answer"])
	assert.Equal(t, "notes.txt | -", body["source"])
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	assert.NotEqual(t, "undefined", sessionID)

	w, body = s.do(t, jsonRequest(http.MethodPost, "/rag_query?session_id="+sessionID, `{"question": "zzz qqq"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, sessionID, body["session_id"])
	assert.Equal(t, rag.NotFoundMessage("zzz qqq"), body["answer"])
	assert.Nil(t, body["source"])

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/get_chat_history/"+sessionID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	history, ok := body["history"].([]any)
	require.True(t, ok)
	assert.Len(t, history, 2)
}

func TestServer_UploadRejectsUnsupported(t *testing.T) {
	s := setupTestServer(t)
	w, body := s.upload(t, "photo.png", "png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "unsupported")
	assert.Contains(t, body["error"], ".pdf, .pptx, .txt, .xlsm")
	assert.NoFileExists(t, filepath.Join(s.inputDir, "photo.png"))
}

func TestServer_QueryValidation(t *testing.T) {
	s := setupTestServer(t)
	w, _ := s.do(t, jsonRequest(http.MethodPost, "/rag_query", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_Sessions(t *testing.T) {
	s := setupTestServer(t)

	w, body := s.do(t, httptest.NewRequest(http.MethodPost, "/new_chat_session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	id, _ := body["session_id"].(string)
	require.NotEmpty(t, id)

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/list_chat_sessions", nil))
	assert.Contains(t, body["sessions"], id)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/save_system_message", `{"message": "be brief", "session_id": "`+id+`"}`))
	require.Equal(t, http.StatusOK, w.Code)

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/get_chat_history/"+id, nil))
	history := body["history"].([]any)
	require.Len(t, history, 1)
	assert.Equal(t, "be brief", history[0].(map[string]any)["system_message"])

	_, body = s.do(t, httptest.NewRequest(http.MethodDelete, "/delete_chat_session/"+id, nil))
	assert.Equal(t, "deleted", body["status"])

	_, body = s.do(t, httptest.NewRequest(http.MethodDelete, "/delete_chat_session/"+id, nil))
	assert.Equal(t, "not found", body["status"])

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/get_chat_history/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "session not found")

	_, body = s.do(t, httptest.NewRequest(http.MethodDelete, "/delete_chat_session/undefined", nil))
	assert.Equal(t, "skip", body["status"])

	w, body = s.do(t, httptest.NewRequest(http.MethodGet, "/get_chat_history/undefined", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["history"])
}

func TestServer_DeleteDocumentAndStats(t *testing.T) {
	s := setupTestServer(t)
	_, _ = s.upload(t, "a.txt", "alpha document")
	_, _ = s.upload(t, "b.txt", "beta document")

	_, body := s.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, true, body["initialized"])
	assert.EqualValues(t, 2, body["vectors"])

	w, body := s.do(t, httptest.NewRequest(http.MethodDelete, "/documents/a.txt", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["removed"])

	_, body = s.do(t, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.EqualValues(t, 1, body["vectors"])
	assert.Equal(t, map[string]any{"b.txt": float64(1)}, body["files"])
}
