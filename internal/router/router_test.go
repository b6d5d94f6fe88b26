package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook/internal/config"
	"github.com/stemsi/gradebook/internal/handler"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/repository"
	"github.com/stemsi/gradebook/internal/service"
	"github.com/stemsi/gradebook/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := validator.Setup(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	dir    string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := repository.NewFSDocumentRepository(dir)
	require.NoError(t, err)

	svc := service.NewSemesterService(store, 50, zerolog.Nop())
	require.NoError(t, svc.Startup(context.Background()))

	handlers := &Handlers{
		Semester:   handler.NewSemesterHandler(svc),
		Subject:    handler.NewSubjectHandler(svc),
		Assessment: handler.NewAssessmentHandler(svc),
		Setting:    handler.NewSettingHandler(svc),
		System:     handler.NewSystemHandler(svc, config.DriverFS),
	}
	cfg := &config.Config{GinMode: gin.TestMode}
	return &testServer{t: t, engine: SetupRouter(handlers, cfg, zerolog.Nop()), dir: dir}
}

func (s *testServer) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func (s *testServer) errorCode(method, path, body string) (int, string) {
	s.t.Helper()
	w, env := s.do(method, path, body)
	if env.Error == nil {
		return w.Code, ""
	}
	return w.Code, env.Error.Code
}

func subjectPath(title string, rest ...string) string {
	return "/api/v1/subjects/" + strings.Join(append([]string{url.PathEscape(title)}, rest...), "/")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, env.Metadata.RequestID)
	assert.Equal(t, env.Metadata.RequestID, w.Header().Get("X-Request-ID"))

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "fs", data["storage_driver"])
}

func TestSampleDataOnFirstStart(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodGet, "/api/v1/subjects", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var data struct {
		Subjects []model.Subject `json:"subjects"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.Len(t, data.Subjects, 1)
	assert.Equal(t, model.SampleSubjectTitle, data.Subjects[0].Title)
	assert.Len(t, data.Subjects[0].Assessments, 3)

	w, env = s.do(http.MethodGet, subjectPath(model.SampleSubjectTitle, "stats"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.InDelta(t, 43.75, st["needed_avg_remaining"], 1e-9)
	assert.InDelta(t, 75.0, st["current_avg_completed"], 1e-9)

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing is saved until the first edit")
}

func TestSubjectAndAssessmentFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/subjects", `{"title": "Maths"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.FileExists(t, filepath.Join(s.dir, model.UntitledSemester+".json"))

	w, env = s.do(http.MethodPost, subjectPath("Maths", "assessments"),
		`{"name": "A1", "kind": "Assignment", "weight": 20, "mark": "15/20"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added struct {
		Index      int              `json:"index"`
		Assessment model.Assessment `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.Equal(t, 0, added.Index)
	require.NotNil(t, added.Assessment.Mark)
	assert.InDelta(t, 75.0, *added.Assessment.Mark, 1e-9)

	w, _ = s.do(http.MethodPost, subjectPath("Maths", "assessments"), `{"name": "Final", "weight": 80}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env = s.do(http.MethodGet, subjectPath("Maths"), "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Subject model.Subject `json:"subject"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Subject.Assessments, 2)
	assert.Equal(t, model.DefaultKind, got.Subject.Assessments[1].Kind)
	assert.Nil(t, got.Subject.Assessments[1].Mark)

	w, env = s.do(http.MethodGet, subjectPath("Maths", "stats")+"?pass_mark=15", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, 15.0, st["pass_mark"])
	assert.Equal(t, 0.0, st["needed_avg_remaining"])

	w, _ = s.do(http.MethodPut, subjectPath("Maths", "assessments", "1"), `{"name": "Final", "kind": "Exam", "weight": 80, "mark": 40}`)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(http.MethodGet, subjectPath("Maths", "stats"), "")
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.InDelta(t, 47.0, st["contributed"], 1e-9)
	assert.Equal(t, "impossible", st["needed_avg_remaining"])

	w, _ = s.do(http.MethodDelete, subjectPath("Maths", "assessments", "0"), "")
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(http.MethodPut, subjectPath("Maths"), `{"title": "Mathematics"}`)
	require.Equal(t, http.StatusOK, w.Code)

	data, err := os.ReadFile(filepath.Join(s.dir, model.UntitledSemester+".json"))
	require.NoError(t, err)
	book, err := model.ParseDocument(data)
	require.NoError(t, err)
	subj, err := book.Subject("Mathematics")
	require.NoError(t, err)
	require.Len(t, subj.Assessments, 1)
	assert.Equal(t, "Final", subj.Assessments[0].Name)

	w, _ = s.do(http.MethodDelete, subjectPath("Mathematics"), "")
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(http.MethodGet, subjectPath("Mathematics"), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBlankTitlePicksNewSubject(t *testing.T) {
	s := newTestServer(t)
	for _, want := range []string{"New Subject", "New Subject (1)"} {
		w, env := s.do(http.MethodPost, "/api/v1/subjects", "")
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var got struct {
			Subject model.Subject `json:"subject"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, want, got.Subject.Title)
	}
}

func TestTitleWithSlash(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(http.MethodPost, "/api/v1/subjects", `{"title": "Art/Design"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, _ = s.do(http.MethodGet, subjectPath("Art/Design"), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	sample := model.SampleSubjectTitle

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"duplicate subject", http.MethodPost, "/api/v1/subjects", `{"title": "` + sample + `"}`, http.StatusConflict, "CONFLICT"},
		{"rename missing subject", http.MethodPut, subjectPath("Ghost"), `{"title": "X"}`, http.StatusNotFound, "NOT_FOUND"},
		{"missing subject stats", http.MethodGet, subjectPath("Ghost", "stats"), "", http.StatusNotFound, "NOT_FOUND"},
		{"bad index syntax", http.MethodDelete, subjectPath(sample, "assessments", "x"), "", http.StatusBadRequest, "INVALID_INDEX"},
		{"negative index", http.MethodDelete, subjectPath(sample, "assessments", "-1"), "", http.StatusBadRequest, "INVALID_INDEX"},
		{"index out of range", http.MethodDelete, subjectPath(sample, "assessments", "9"), "", http.StatusNotFound, "NOT_FOUND"},
		{"mark above 100", http.MethodPost, subjectPath(sample, "assessments"), `{"name": "Q", "weight": 5, "mark": "150"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"fraction with zero denominator", http.MethodPost, subjectPath(sample, "assessments"), `{"name": "Q", "weight": 5, "mark": "3/0"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"blank name", http.MethodPost, subjectPath(sample, "assessments"), `{"name": "  ", "weight": 5}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"weight too large", http.MethodPost, subjectPath(sample, "assessments"), `{"name": "Q", "weight": 1001}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed json", http.MethodPost, subjectPath(sample, "assessments"), `{"name": `, http.StatusBadRequest, "INVALID_PAYLOAD"},
		{"stats pass mark out of range", http.MethodGet, subjectPath(sample, "stats") + "?pass_mark=101", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"pass mark out of range", http.MethodPut, "/api/v1/settings/pass-mark", `{"pass_mark": 120}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"import malformed document", http.MethodPut, "/api/v1/semesters/active/import", `{"S": {"assessments": [{"name": "x"}]}}`, http.StatusUnprocessableEntity, "INVALID_DOCUMENT"},
		{"open missing semester", http.MethodPost, "/api/v1/semesters/open", `{"name": "Nope"}`, http.StatusNotFound, "NOT_FOUND"},
		{"delete unsaved semester", http.MethodDelete, "/api/v1/semesters/active", "", http.StatusNotFound, "NO_ACTIVE_SEMESTER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := s.errorCode(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, code)
		})
	}

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed requests never write")
}

func TestMissingWeightReportsField(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(http.MethodPost, subjectPath(model.SampleSubjectTitle, "assessments"), `{"name": "Q"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "weight")
}

func TestPassMarkSetting(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPut, "/api/v1/settings/pass-mark", `{"pass_mark": 65}`)
	require.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(http.MethodGet, "/api/v1/settings/pass-mark", "")
	var pm map[string]float64
	require.NoError(t, json.Unmarshal(env.Data, &pm))
	assert.Equal(t, 65.0, pm["pass_mark"])

	_, env = s.do(http.MethodGet, subjectPath(model.SampleSubjectTitle, "stats"), "")
	var st map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.InDelta(t, 62.5, st["needed_avg_remaining"], 1e-9)
}

func TestSemesterLifecycle(t *testing.T) {
	s := newTestServer(t)
	active := func(env envelope) string {
		var d struct {
			Active string `json:"active"`
		}
		require.NoError(t, json.Unmarshal(env.Data, &d))
		return d.Active
	}

	// saving the sample data under a name
	w, env := s.do(http.MethodPut, "/api/v1/semesters/active", `{"name": "Fall 2026"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Fall 2026", active(env))
	assert.FileExists(t, filepath.Join(s.dir, "Fall 2026.json"))

	w, env = s.do(http.MethodPost, "/api/v1/semesters", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, model.UntitledSemester, active(env))

	status, code := s.errorCode(http.MethodPut, "/api/v1/semesters/active", `{"name": "Fall 2026"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", code)

	w, env = s.do(http.MethodGet, "/api/v1/semesters", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Semesters []model.DocumentInfo `json:"semesters"`
		Active    string               `json:"active"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Semesters, 2)
	assert.Equal(t, "Fall 2026", list.Semesters[0].Name)
	assert.Equal(t, model.UntitledSemester, list.Active)

	w, env = s.do(http.MethodPost, "/api/v1/semesters/open", `{"name": "Fall 2026"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Fall 2026", active(env))

	w, _ = s.do(http.MethodGet, "/api/v1/semesters/active/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Fall 2026.json")
	book, err := model.ParseDocument(w.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, book.Has(model.SampleSubjectTitle))

	w, env = s.do(http.MethodPut, "/api/v1/semesters/active/import", `{"Physics": {"title": "Physics", "assessments": []}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = s.do(http.MethodGet, subjectPath("Physics"), "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(http.MethodDelete, "/api/v1/semesters/active", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.UntitledSemester, active(env))
	assert.NoFileExists(t, filepath.Join(s.dir, "Fall 2026.json"))
}
