package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
)

// maxDocumentSize bounds imported semester documents.
const maxDocumentSize = 4 << 20

type SemesterHandler struct {
	semesterService *service.SemesterService
}

func NewSemesterHandler(semesterService *service.SemesterService) *SemesterHandler {
	return &SemesterHandler{semesterService: semesterService}
}

// List godoc
// GET /api/v1/semesters
func (h *SemesterHandler) List(c *gin.Context) {
	docs, err := h.semesterService.ListSemesters(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if docs == nil {
		docs = []model.DocumentInfo{}
	}
	response.Success(c, http.StatusOK, gin.H{"semesters": docs, "active": h.semesterService.Active()})
}

// Create godoc
// POST /api/v1/semesters
func (h *SemesterHandler) Create(c *gin.Context) {
	name, err := h.semesterService.NewSemester(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"active": name})
}

// Open godoc
// POST /api/v1/semesters/open
func (h *SemesterHandler) Open(c *gin.Context) {
	var req model.OpenSemesterRequest
	if !bind(c, &req) {
		return
	}
	if err := h.semesterService.Open(c.Request.Context(), req.Name); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": h.semesterService.Active()})
}

// Rename godoc
// PUT /api/v1/semesters/active
func (h *SemesterHandler) Rename(c *gin.Context) {
	var req model.RenameSemesterRequest
	if !bind(c, &req) {
		return
	}
	if err := h.semesterService.RenameSemester(c.Request.Context(), req.Name, req.Overwrite); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": h.semesterService.Active()})
}

// Delete godoc
// DELETE /api/v1/semesters/active
func (h *SemesterHandler) Delete(c *gin.Context) {
	next, err := h.semesterService.DeleteSemester(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": next})
}

// Export godoc
// GET /api/v1/semesters/active/export
//
// Responds with the bare document, not the envelope, so it can be saved
// and imported again as is.
func (h *SemesterHandler) Export(c *gin.Context) {
	data, err := h.semesterService.Export()
	if err != nil {
		fail(c, err)
		return
	}
	name := h.semesterService.Active()
	if name == "" {
		name = model.UntitledSemester
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".json"))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// Import godoc
// PUT /api/v1/semesters/active/import
func (h *SemesterHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize))
	if err != nil {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, err.Error())
		return
	}
	if err := h.semesterService.Import(c.Request.Context(), data); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"active": h.semesterService.Active(), "subjects": len(h.semesterService.Subjects())})
}
