package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/course-registry-api/internal/models"
	"github.com/noah-isme/course-registry-api/internal/service"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
	"github.com/noah-isme/course-registry-api/pkg/response"
)

type courseQueries interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error)
	Get(ctx context.Context, id int64) (*models.Course, error)
}

type prerequisiteManager interface {
	Add(ctx context.Context, courseID, prerequisiteID int64) (*models.Prerequisite, error)
	List(ctx context.Context, courseID int64) ([]models.Prerequisite, error)
}

type rosterReader interface {
	Roster(ctx context.Context, courseID int64) ([]models.RosterEntry, error)
}

// CourseHandler exposes course, prerequisite and roster endpoints.
type CourseHandler struct {
	courses       courseQueries
	prerequisites prerequisiteManager
	rosters       rosterReader
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses courseQueries, prerequisites prerequisiteManager, rosters rosterReader) *CourseHandler {
	return &CourseHandler{courses: courses, prerequisites: prerequisites, rosters: rosters}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param department query string false "Department"
// @Param instructor query string false "Instructor (substring)"
// @Param days query string false "Meeting days"
// @Param begin_after query string false "Earliest begin time, e.g. 9:00 AM or 09:00"
// @Param end_before query string false "Latest end time, e.g. 1:00 PM or 13:00"
// @Param term query string false "Term"
// @Param year query int false "Year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	beginAfter, err := clockQuery(c, "begin_after")
	if err != nil {
		response.Error(c, err)
		return
	}
	endBefore, err := clockQuery(c, "end_before")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.CourseFilter{
		Department: strings.TrimSpace(c.Query("department")),
		Instructor: strings.TrimSpace(c.Query("instructor")),
		Days:       strings.TrimSpace(c.Query("days")),
		BeginAfter: beginAfter,
		EndBefore:  endBefore,
		Term:       strings.TrimSpace(c.Query("term")),
		Year:       intQuery(c, "year", 0),
		Page:       intQuery(c, "page", 1),
		PageSize:   intQuery(c, "limit", 20),
	}
	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Get godoc
// @Summary Get course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// AddPrerequisite godoc
// @Summary Add a prerequisite to a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path int true "Course ID"
// @Param payload body service.AddPrerequisiteRequest true "Prerequisite"
// @Success 201 {object} response.Envelope
// @Router /courses/{id}/prerequisites [post]
func (h *CourseHandler) AddPrerequisite(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req service.AddPrerequisiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	edge, err := h.prerequisites.Add(c.Request.Context(), id, req.PrerequisiteID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, edge)
}

// Prerequisites godoc
// @Summary List the direct prerequisites of a course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/prerequisites [get]
func (h *CourseHandler) Prerequisites(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	edges, err := h.prerequisites.List(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, edges, nil)
}

// Roster godoc
// @Summary List students enrolled in a course
// @Tags Courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/students [get]
func (h *CourseHandler) Roster(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	roster, err := h.rosters.Roster(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, roster, nil)
}
