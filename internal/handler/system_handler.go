package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
)

// SystemHandler reports liveness and a little process state.
type SystemHandler struct {
	semesterService *service.SemesterService
	driver          string
	startTime       time.Time
}

func NewSystemHandler(semesterService *service.SemesterService, driver string) *SystemHandler {
	return &SystemHandler{
		semesterService: semesterService,
		driver:          driver,
		startTime:       time.Now(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"status":          "ok",
		"uptime":          time.Since(h.startTime).Round(time.Second).String(),
		"storage_driver":  h.driver,
		"active_semester": h.semesterService.Active(),
		"go_version":      runtime.Version(),
	})
}
