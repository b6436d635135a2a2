package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/anisensei/internal/anime"
	"github.com/MarcoPoloResearchLab/anisensei/internal/assistant"
	"github.com/MarcoPoloResearchLab/anisensei/internal/database"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type sequenceIDs struct {
	next int
}

func (p *sequenceIDs) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("anime-%03d", p.next), nil
}

type stubAssistant struct {
	response string
	err      error
	queries  []string
}

func (s *stubAssistant) Ask(_ context.Context, query string) (string, error) {
	s.queries = append(s.queries, query)
	if strings.TrimSpace(query) == "" {
		return "", assistant.ErrEmptyQuery
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type testServer struct {
	handler   http.Handler
	service   *anime.Service
	assistant *stubAssistant
}

func newTestServer(testContext *testing.T) *testServer {
	testContext.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.DriverSQLite, filepath.Join(testContext.TempDir(), "server.db"), zap.NewNop())
	if err != nil {
		testContext.Fatalf("failed to open database: %v", err)
	}
	service, err := anime.NewService(anime.ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return fixedNow },
		IDProvider: &sequenceIDs{},
	})
	if err != nil {
		testContext.Fatalf("failed to build anime service: %v", err)
	}

	stub := &stubAssistant{response: "Watch Mushishi next."}
	handler, err := NewHTTPHandler(Dependencies{
		AnimeService:   service,
		Assistant:      stub,
		Logger:         zap.NewNop(),
		Version:        "9.9.9",
		AllowedOrigins: []string{"*"},
		MaxUploadBytes: 1 << 20,
		Clock:          func() time.Time { return fixedNow },
	})
	if err != nil {
		testContext.Fatalf("failed to build handler: %v", err)
	}
	return &testServer{handler: handler, service: service, assistant: stub}
}

func (s *testServer) do(request *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func (s *testServer) doJSON(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, target, reader)
	request.Header.Set("Content-Type", "application/json")
	return s.do(request)
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func newMultipartRequest(testContext *testing.T, method, target string, values map[string]string, files ...formFile) *http.Request {
	testContext.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range values {
		if err := writer.WriteField(key, value); err != nil {
			testContext.Fatalf("failed to write field: %v", err)
		}
	}
	for _, file := range files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
		header.Set("Content-Type", file.contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			testContext.Fatalf("failed to create part: %v", err)
		}
		if _, err := part.Write(file.data); err != nil {
			testContext.Fatalf("failed to write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		testContext.Fatalf("failed to close writer: %v", err)
	}
	request := httptest.NewRequest(method, target, &body)
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request
}

func decodeRecord(testContext *testing.T, recorder *httptest.ResponseRecorder) recordResponse {
	testContext.Helper()
	var record recordResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &record); err != nil {
		testContext.Fatalf("failed to decode record: %v (%s)", err, recorder.Body.String())
	}
	return record
}

func decodeObject(testContext *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	testContext.Helper()
	var payload map[string]any
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		testContext.Fatalf("failed to decode body: %v (%s)", err, recorder.Body.String())
	}
	return payload
}
