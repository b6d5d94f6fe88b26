package handler

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
)

type SubjectHandler struct {
	semesterService *service.SemesterService
}

func NewSubjectHandler(semesterService *service.SemesterService) *SubjectHandler {
	return &SubjectHandler{semesterService: semesterService}
}

// GetAll godoc
// GET /api/v1/subjects
func (h *SubjectHandler) GetAll(c *gin.Context) {
	subjects := h.semesterService.Subjects()
	if subjects == nil {
		subjects = []model.Subject{}
	}
	response.Success(c, http.StatusOK, gin.H{"subjects": subjects})
}

// Get godoc
// GET /api/v1/subjects/:title
func (h *SubjectHandler) Get(c *gin.Context) {
	subj, err := h.semesterService.Subject(c.Param("title"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// Create godoc
// POST /api/v1/subjects
func (h *SubjectHandler) Create(c *gin.Context) {
	var req model.CreateSubjectRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	title, err := h.semesterService.AddSubject(c.Request.Context(), strings.TrimSpace(req.Title))
	if err != nil {
		fail(c, err)
		return
	}
	subj, _ := h.semesterService.Subject(title)
	response.Success(c, http.StatusCreated, gin.H{"subject": subj})
}

// Rename godoc
// PUT /api/v1/subjects/:title
func (h *SubjectHandler) Rename(c *gin.Context) {
	var req model.RenameSubjectRequest
	if !bind(c, &req) {
		return
	}

	newTitle := strings.TrimSpace(req.Title)
	if err := h.semesterService.RenameSubject(c.Request.Context(), c.Param("title"), newTitle); err != nil {
		fail(c, err)
		return
	}
	subj, _ := h.semesterService.Subject(newTitle)
	response.Success(c, http.StatusOK, gin.H{"subject": subj})
}

// Delete godoc
// DELETE /api/v1/subjects/:title
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.semesterService.RemoveSubject(c.Request.Context(), c.Param("title")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "subject deleted successfully"})
}

// Stats godoc
// GET /api/v1/subjects/:title/stats?pass_mark=
func (h *SubjectHandler) Stats(c *gin.Context) {
	var passMark *float64
	if raw, ok := c.GetQuery("pass_mark"); ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || v < 0 || v > 100 {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
				map[string]string{"pass_mark": "pass_mark must be a number between 0 and 100"})
			return
		}
		passMark = &v
	}

	st, err := h.semesterService.Stats(c.Param("title"), passMark)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, st)
}
