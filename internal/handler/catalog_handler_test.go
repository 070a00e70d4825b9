package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/middleware"
	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type importJobsMock struct {
	submitted service.SubmitImportRequest
	body      string
	job       *models.ImportJob
	csv       []byte
	err       error
}

func (m *importJobsMock) Submit(ctx context.Context, req service.SubmitImportRequest) (*models.ImportJob, error) {
	m.submitted = req
	raw, _ := io.ReadAll(req.Body)
	m.body = string(raw)
	return m.job, m.err
}

func (m *importJobsMock) Get(id string) (*models.ImportJob, error) {
	return m.job, m.err
}

func (m *importJobsMock) IssuesCSV(id string) ([]byte, error) {
	return m.csv, m.err
}

func TestCatalogHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &importJobsMock{job: &models.ImportJob{ID: "job-1", Status: models.ImportJobQueued}}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", "fall.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("Accounting\n"))
	require.NoError(t, mw.WriteField("year", "2022"))
	require.NoError(t, mw.WriteField("term", "Spring"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/catalog/imports", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Role: models.RoleRegistrar})

	NewCatalogHandler(mock).Submit(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "fall.csv", mock.submitted.Filename)
	assert.Equal(t, 2022, mock.submitted.Year)
	assert.Equal(t, "Spring", mock.submitted.Term)
	assert.Equal(t, "Accounting\n", mock.body)
}

func TestCatalogHandlerSubmitWithoutFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(t, mw.WriteField("term", "Fall"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/catalog/imports", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.Request = req

	NewCatalogHandler(&importJobsMock{}).Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCatalogHandlerIssuesDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &importJobsMock{csv: []byte("line,kind,reason,detail\n")}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/catalog/imports/job-1/issues.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "job-1"}}

	NewCatalogHandler(mock).Issues(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "import-job-1-issues.csv")
}

func TestCatalogHandlerGetUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/catalog/imports/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	NewCatalogHandler(&importJobsMock{err: appErrors.Clone(appErrors.ErrNotFound, "import not found")}).Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
