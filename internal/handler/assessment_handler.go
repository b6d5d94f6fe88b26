package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
	"github.com/stemsi/gradebook/internal/validator"
)

// AssessmentHandler edits the assessments of one subject. Assessments are
// addressed by position; deleting one shifts the indices after it.
type AssessmentHandler struct {
	semesterService *service.SemesterService
}

func NewAssessmentHandler(semesterService *service.SemesterService) *AssessmentHandler {
	return &AssessmentHandler{semesterService: semesterService}
}

// Create godoc
// POST /api/v1/subjects/:title/assessments
func (h *AssessmentHandler) Create(c *gin.Context) {
	a, ok := bindAssessment(c)
	if !ok {
		return
	}

	idx, err := h.semesterService.AddAssessment(c.Request.Context(), c.Param("title"), a)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"index": idx, "assessment": a})
}

// Update godoc
// PUT /api/v1/subjects/:title/assessments/:index
func (h *AssessmentHandler) Update(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}
	a, ok := bindAssessment(c)
	if !ok {
		return
	}

	if err := h.semesterService.UpdateAssessment(c.Request.Context(), c.Param("title"), idx, a); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"index": idx, "assessment": a})
}

// Delete godoc
// DELETE /api/v1/subjects/:title/assessments/:index
func (h *AssessmentHandler) Delete(c *gin.Context) {
	idx, ok := indexParam(c)
	if !ok {
		return
	}

	if err := h.semesterService.DeleteAssessment(c.Request.Context(), c.Param("title"), idx); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "assessment deleted successfully"})
}

func bindAssessment(c *gin.Context) (model.Assessment, bool) {
	var req model.AssessmentRequest
	if !bind(c, &req) {
		return model.Assessment{}, false
	}
	a, err := validator.Assessment(req)
	if err != nil {
		fail(c, err)
		return model.Assessment{}, false
	}
	return a, true
}
