package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crowdpulse/backend/internal/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries a machine-readable kind plus a human message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with kind invalid_input.
func BadRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, "invalid_input", msg)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, msg string) {
	fail(c, http.StatusUnauthorized, "unauthorized", msg)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, msg string) {
	fail(c, http.StatusForbidden, "forbidden", msg)
}

// NotFound sends 404.
func NotFound(c *gin.Context, msg string) {
	fail(c, http.StatusNotFound, "not_found", msg)
}

// Conflict sends 409.
func Conflict(c *gin.Context, msg string) {
	fail(c, http.StatusConflict, "conflict", msg)
}

// InvalidState sends 422.
func InvalidState(c *gin.Context, msg string) {
	fail(c, http.StatusUnprocessableEntity, "invalid_state", msg)
}

// Internal sends 500.
func Internal(c *gin.Context, msg string) {
	fail(c, http.StatusInternalServerError, "internal", msg)
}

// Upstream sends 502 for store/transport failures that are retryable at the caller.
func Upstream(c *gin.Context, msg string) {
	fail(c, http.StatusBadGateway, "upstream", msg)
}

// kindStatus maps taxonomy kinds to HTTP statuses.
var kindStatus = map[string]int{
	"invalid_input": http.StatusBadRequest,
	"unauthorized":  http.StatusUnauthorized,
	"forbidden":     http.StatusForbidden,
	"not_found":     http.StatusNotFound,
	"conflict":      http.StatusConflict,
	"invalid_state": http.StatusUnprocessableEntity,
	"upstream":      http.StatusBadGateway,
	"internal":      http.StatusInternalServerError,
}

// Error classifies err via apperr.Kind and sends the matching status. msg
// overrides the error text when non-empty.
func Error(c *gin.Context, err error, msg string) {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	kind := apperr.Kind(err)
	fail(c, kindStatus[kind], kind, msg)
}

func fail(c *gin.Context, status int, kind, msg string) {
	c.JSON(status, Body{Success: false, Error: &ErrorBody{Kind: kind, Message: msg}})
}
