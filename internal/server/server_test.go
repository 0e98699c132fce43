package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seeql-labs/seeql/internal/augment"
	"github.com/seeql-labs/seeql/internal/dataset"
	"github.com/seeql-labs/seeql/internal/executor"
	"github.com/seeql-labs/seeql/internal/testutil"
	"github.com/seeql-labs/seeql/internal/translate"
)

func newTestServer(t *testing.T, aug augment.Augmenter) *Server {
	t.Helper()

	eng, err := executor.Open(":memory:", executor.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	logger := testutil.NewTestLogger(t)
	registry := dataset.NewRegistry(eng.DB(), logger)
	require.NoError(t, registry.SeedBuiltins(context.Background()))

	return New(Config{
		Engine:        eng,
		Registry:      registry,
		Augmenter:     aug,
		Port:          0,
		SessionSecret: "test-secret",
		Logger:        logger,
	})
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery_Success(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{
		"sql": "SELECT name, marks FROM students WHERE marks > 80 ORDER BY marks DESC",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []string{"name", "marks"}, res.Columns)
	require.Equal(t, 3, res.RowCount)
	assert.Equal(t, "Neha", res.Rows[0]["name"])
}

func TestHandleQuery_ZeroRowsIsNotAnError(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{
		"sql": "SELECT * FROM students WHERE marks > 200",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 0, body["row_count"])
	assert.NotContains(t, body, "error_explanation")
}

func TestHandleQuery_EngineErrorTranslated(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{"sql": "SELECT * FROM ghosts"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body queryErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rules", body.Source)
	assert.Contains(t, body.RawError, "ghosts")
	require.NotEmpty(t, body.ErrorExplanation.Meaning)
	assert.Contains(t, body.ErrorExplanation.Meaning[0], "ghosts")
	assert.Contains(t, body.ErrorExplanation.Fix[0], "ghosts")
}

func TestHandleQuery_Blocked(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{"sql": "DROP TABLE students"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// The registry and its tables are untouched afterwards.
	rec = postJSON(t, r, "/api/query", map[string]string{"sql": "SELECT COUNT(*) AS n FROM students"})
	require.Equal(t, http.StatusOK, rec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.EqualValues(t, 5, res.Rows[0]["n"])
}

func TestHandleQuery_EmptySQL(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{"sql": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// remoteAugmenter simulates a working remote explanation service.
type remoteAugmenter struct{}

func (remoteAugmenter) ExplainQuery(context.Context, string) ([]string, error) {
	return []string{"remote step"}, nil
}

func (remoteAugmenter) ExplainError(context.Context, string) (*translate.Explanation, error) {
	return &translate.Explanation{
		Meaning: []string{"remote meaning"},
		Reason:  []string{"remote reason"},
		Fix:     []string{"remote fix"},
	}, nil
}

// brokenAugmenter simulates a failing remote service.
type brokenAugmenter struct{}

func (brokenAugmenter) ExplainQuery(context.Context, string) ([]string, error) {
	return nil, errors.New("remote down")
}

func (brokenAugmenter) ExplainError(context.Context, string) (*translate.Explanation, error) {
	return nil, errors.New("remote down")
}

func TestHandleQuery_RemoteAugmentedError(t *testing.T) {
	srv := newTestServer(t, remoteAugmenter{})
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{"sql": "SELECT * FROM ghosts"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body queryErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "remote", body.Source)
	assert.Equal(t, []string{"remote meaning"}, body.ErrorExplanation.Meaning)
}

func TestHandleQuery_RemoteFailureFallsBackToRules(t *testing.T) {
	srv := newTestServer(t, brokenAugmenter{})
	r := srv.Routes()

	rec := postJSON(t, r, "/api/query", map[string]string{"sql": "SELECT * FROM ghosts"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body queryErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rules", body.Source)
	assert.Contains(t, body.ErrorExplanation.Meaning[0], "ghosts")
}

func TestHandleExplain(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/explain", map[string]string{
		"sql": "SELECT * FROM students WHERE marks > 80",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Steps  []string `json:"steps"`
		Method string   `json:"method"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rules", body.Method)
	require.Len(t, body.Steps, 3)
	assert.Equal(t, "Start with the students table.", body.Steps[0])
	assert.Equal(t, "Keep only the rows where marks > 80.", body.Steps[1])
}

func TestHandleExplain_Garbage(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/explain", map[string]string{"sql": "purple monkeys"})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Steps []string `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Steps)
}

func TestHandleListDatasets(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/datasets", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Datasets []dataset.Dataset `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Datasets, 2)
	assert.Equal(t, "students", body.Datasets[0].Name)
	assert.Equal(t, "employees", body.Datasets[1].Name)
}

func TestHandleGetDataset(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/datasets/students", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var ds dataset.Dataset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	assert.Equal(t, []string{"id", "name", "marks"}, ds.Columns)
	assert.NotEmpty(t, ds.ExampleQueries)

	req = httptest.NewRequest(http.MethodGet, "/api/datasets/nope", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	body, contentType := multipartUpload(t, "pets.csv", "name,age\nRex,3\nWhiskers,5\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		TableName string   `json:"table_name"`
		Columns   []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.TableName, "user_"))
	assert.Equal(t, []string{"name", "age"}, resp.Columns)

	// The uploaded table is queryable right away.
	qrec := postJSON(t, r, "/api/query", map[string]string{
		"sql": "SELECT age FROM " + resp.TableName + " WHERE name = 'Rex'",
	})
	require.Equal(t, http.StatusOK, qrec.Code)

	var res executor.Result
	require.NoError(t, json.Unmarshal(qrec.Body.Bytes(), &res))
	assert.EqualValues(t, 3, res.Rows[0]["age"])
}

func TestHandleUpload_RejectsNonCSV(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	body, contentType := multipartUpload(t, "data.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleExport_JSON(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/export?format=json", map[string]string{
		"sql": "SELECT name FROM students ORDER BY id LIMIT 2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Amit", rows[0]["name"])
}

func TestHandleExport_CSV(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/export", map[string]string{
		"sql": "SELECT name, marks FROM students ORDER BY id LIMIT 1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, "name,marks\nAmit,85\n", rec.Body.String())
}

func TestHandleExport_BadFormat(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	rec := postJSON(t, r, "/api/export?format=xml", map[string]string{"sql": "SELECT 1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateSession(t *testing.T) {
	srv := newTestServer(t, nil)
	r := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body["user_id"], 8)
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))
}
