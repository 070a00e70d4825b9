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

type importJobs interface {
	Submit(ctx context.Context, req service.SubmitImportRequest) (*models.ImportJob, error)
	Get(id string) (*models.ImportJob, error)
	IssuesCSV(id string) ([]byte, error)
}

// CatalogImportForm carries optional run parameters next to the uploaded file.
type CatalogImportForm struct {
	Year int    `form:"year" binding:"omitempty,gte=1900,lte=2200"`
	Term string `form:"term" binding:"omitempty,max=50"`
}

// CatalogHandler exposes catalog import endpoints.
type CatalogHandler struct {
	imports importJobs
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(imports importJobs) *CatalogHandler {
	return &CatalogHandler{imports: imports}
}

// Submit godoc
// @Summary Queue a catalog import
// @Tags Catalog
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Catalog CSV export"
// @Param year formData int false "Catalog year"
// @Param term formData string false "Catalog term"
// @Success 202 {object} response.Envelope
// @Router /catalog/imports [post]
func (h *CatalogHandler) Submit(c *gin.Context) {
	var form CatalogImportForm
	if err := c.ShouldBind(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid import parameters"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	job, err := h.imports.Submit(c.Request.Context(), service.SubmitImportRequest{
		Filename:    fileHeader.Filename,
		Body:        src,
		Year:        form.Year,
		Term:        form.Term,
		RequestedBy: requesterName(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, job)
}

// Get godoc
// @Summary Get catalog import status
// @Tags Catalog
// @Produce json
// @Param id path string true "Import ID"
// @Success 200 {object} response.Envelope
// @Router /catalog/imports/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	job, err := h.imports.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Issues godoc
// @Summary Download the issue report of a catalog import
// @Tags Catalog
// @Produce text/csv
// @Param id path string true "Import ID"
// @Success 200 {file} file
// @Router /catalog/imports/{id}/issues.csv [get]
func (h *CatalogHandler) Issues(c *gin.Context) {
	id := c.Param("id")
	body, err := h.imports.IssuesCSV(id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, "import-"+id+"-issues.csv", "text/csv", body)
}
