package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/gradebook/internal/model"
	"github.com/stemsi/gradebook/internal/response"
	"github.com/stemsi/gradebook/internal/service"
	"github.com/stemsi/gradebook/internal/validator"
)

// fail maps a service error to its HTTP status and error code.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNoActiveSemester):
		response.Fail(c, http.StatusNotFound, response.ErrNoActiveSemester)
	case errors.Is(err, model.ErrValidation):
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrValidation, err.Error())
	case errors.Is(err, model.ErrParse):
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrInvalidDoc, err.Error())
	case errors.Is(err, model.ErrNotFound):
		response.FailWithMessage(c, http.StatusNotFound, response.ErrNotFound, err.Error())
	case errors.Is(err, model.ErrDuplicateKey):
		response.FailWithMessage(c, http.StatusConflict, response.ErrConflict, err.Error())
	default:
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// bind decodes and validates the JSON body, writing the error response
// itself when that fails.
func bind(c *gin.Context, dst any) bool {
	fields := validator.Bind(c, dst)
	if fields == nil {
		return true
	}
	if detail, ok := fields[validator.DetailKey]; ok && len(fields) == 1 {
		response.FailWithMessage(c, http.StatusBadRequest, response.ErrInvalidPayload, detail)
		return false
	}
	response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
	return false
}

func indexParam(c *gin.Context) (int, bool) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidIndex)
		return 0, false
	}
	return idx, true
}
