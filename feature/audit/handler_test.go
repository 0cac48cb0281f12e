package audit

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	engine "payroll-auditor/core/audit"
	"payroll-auditor/core/storage/mocks"
)

func newTestApp(client *mocks.Client) *fiber.App {
	app := fiber.New()
	feature := NewFeature(client, testBucket, zap.NewNop(), engine.DefaultConfig())
	if err := feature.Load(app); err != nil {
		panic(err)
	}
	return app
}

type filePart struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, files []filePart, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestHandleCompare(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, testBucket).Return(true, nil)
	client.On("PutObject", mock.Anything, testBucket, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, nil)

	app := newTestApp(client)

	body, contentType := multipartBody(t,
		[]filePart{
			{"file1", "current.csv", []byte(payrollCSV)},
			{"file2", "previous.csv", []byte(payrollCSV)},
		},
		map[string]string{"fuzzy_matching": "on"},
	)
	req := httptest.NewRequest(http.MethodPost, "/audit/compare", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var comparison Comparison
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&comparison))
	_, uuidErr := uuid.Parse(comparison.ID)
	assert.NoError(t, uuidErr)
	require.NotNil(t, comparison.Result)
	assert.Equal(t, engine.RiskClean, comparison.Result.Summary.Risk)
}

func TestHandleCompare_MissingFile(t *testing.T) {
	app := newTestApp(new(mocks.Client))

	body, contentType := multipartBody(t,
		[]filePart{{"file1", "current.csv", []byte(payrollCSV)}},
		nil,
	)
	req := httptest.NewRequest(http.MethodPost, "/audit/compare", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "both files")
}

func TestHandleCompare_UnsupportedType(t *testing.T) {
	app := newTestApp(new(mocks.Client))

	body, contentType := multipartBody(t,
		[]filePart{
			{"file1", "payroll.docx", []byte("x")},
			{"file2", "previous.csv", []byte(payrollCSV)},
		},
		nil,
	)
	req := httptest.NewRequest(http.MethodPost, "/audit/compare", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetResult(t *testing.T) {
	id := uuid.NewString()
	stored := `{"id":"` + id + `"}`

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything).
		Return(io.NopCloser(bytes.NewReader([]byte(stored))), nil)

	app := newTestApp(client)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit/results/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMEApplicationJSON, resp.Header.Get(fiber.HeaderContentType))

	data, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, stored, string(data))
}

func TestHandleGetResult_MalformedID(t *testing.T) {
	app := newTestApp(new(mocks.Client))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit/results/not-a-uuid", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleGetResult_NotFound(t *testing.T) {
	id := uuid.NewString()

	client := new(mocks.Client)
	client.On("GetObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything).
		Return(noSuchKeyReader{}, nil)

	app := newTestApp(client)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit/results/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleListResults(t *testing.T) {
	id := uuid.NewString()

	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, testBucket, mock.Anything).
		Return(objectInfoCh("results/" + id + ".json"))

	app := newTestApp(client)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audit/results", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Results []string `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, []string{id}, decoded.Results)
}

func TestHandleDeleteResult(t *testing.T) {
	id := uuid.NewString()

	client := new(mocks.Client)
	client.On("RemoveObject", mock.Anything, testBucket, mock.Anything, mock.Anything).Return(nil)
	client.On("ListObjects", mock.Anything, testBucket, mock.Anything).Return(objectInfoCh())

	app := newTestApp(client)
	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/audit/results/"+id, nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	client.AssertCalled(t, "RemoveObject", mock.Anything, testBucket, "results/"+id+".json", mock.Anything)
}

func TestHandleStatus(t *testing.T) {
	app := newTestApp(new(mocks.Client))
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/status", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "online", status["status"])
	assert.Equal(t, engine.Version, status["version"])
}
