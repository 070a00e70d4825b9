package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type enrollerMock struct {
	outcome *models.EnrollmentOutcome
	err     error
	lastReq service.EnrollRequest
}

func (m *enrollerMock) Enroll(ctx context.Context, req service.EnrollRequest) (*models.EnrollmentOutcome, error) {
	m.lastReq = req
	return m.outcome, m.err
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func postEnrollment(t *testing.T, mock *enrollerMock, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/enrollments", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	NewEnrollmentHandler(mock).Create(c)
	return w
}

func TestEnrollmentHandlerCreateAdmitted(t *testing.T) {
	mock := &enrollerMock{outcome: &models.EnrollmentOutcome{
		Admitted:   true,
		Enrollment: &models.Enrollment{StudentID: 1, CourseID: 2, Status: models.EnrollmentStatusActive, ClassSize: 100},
	}}
	w := postEnrollment(t, mock, `{"student_id":1,"course_id":2,"status":"Active"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(2), mock.lastReq.CourseID)
	assert.Equal(t, models.EnrollmentStatusActive, mock.lastReq.Status)
}

func TestEnrollmentHandlerCreateRejected(t *testing.T) {
	unmet := int64(7)
	mock := &enrollerMock{outcome: &models.EnrollmentOutcome{Admitted: false, UnmetPrerequisiteID: &unmet}}
	w := postEnrollment(t, mock, `{"student_id":1,"course_id":2}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "PREREQUISITE_UNMET", env.Error.Code)
	assert.Equal(t, float64(7), env.Meta["unmet_prerequisite_id"])
}

func TestEnrollmentHandlerCreateConflict(t *testing.T) {
	mock := &enrollerMock{err: appErrors.Clone(appErrors.ErrConflict, "student already enrolled in course")}
	w := postEnrollment(t, mock, `{"student_id":1,"course_id":2}`)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", decodeEnvelope(t, w).Error.Code)
}

func TestEnrollmentHandlerCreateInvalidBody(t *testing.T) {
	w := postEnrollment(t, &enrollerMock{}, `{"student_id":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
