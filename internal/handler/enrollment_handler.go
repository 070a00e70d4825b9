package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

type enroller interface {
	Enroll(ctx context.Context, req service.EnrollRequest) (*models.EnrollmentOutcome, error)
}

// EnrollmentHandler exposes enrollment creation.
type EnrollmentHandler struct {
	enrollments enroller
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enroller) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// Create godoc
// @Summary Enroll a student in a course
// @Description Admits the student only if every direct prerequisite of the course has a Complete enrollment. A rejection returns 422 with the first unmet prerequisite.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !outcome.Admitted {
		response.Error(c, appErrors.ErrPrerequisiteUnmet, map[string]interface{}{
			"student_id":            req.StudentID,
			"course_id":             req.CourseID,
			"unmet_prerequisite_id": *outcome.UnmetPrerequisiteID,
		})
		return
	}
	response.Created(c, outcome.Enrollment)
}
