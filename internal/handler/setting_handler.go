package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
)

type SettingHandler struct {
	semesterService *service.SemesterService
}

func NewSettingHandler(semesterService *service.SemesterService) *SettingHandler {
	return &SettingHandler{semesterService: semesterService}
}

// GetPassMark godoc
// GET /api/v1/settings/pass-mark
func (h *SettingHandler) GetPassMark(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"pass_mark": h.semesterService.PassMark()})
}

// UpdatePassMark godoc
// PUT /api/v1/settings/pass-mark
func (h *SettingHandler) UpdatePassMark(c *gin.Context) {
	var req model.PassMarkRequest
	if !bind(c, &req) {
		return
	}

	if err := h.semesterService.SetPassMark(*req.PassMark); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"pass_mark": h.semesterService.PassMark()})
}
