package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// problem is an RFC 7807 problem details body.
type problem struct {
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	Status     int            `json:"status"`
	Detail     string         `json:"detail,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

const (
	typeBadRequest = "/problems/bad-request"
	typeValidation = "/problems/validation-error"
	typeSecurity   = "/problems/template-security"
	typeInternal   = "/problems/internal-error"
	typeTooLarge   = "/problems/payload-too-large"
)

func respondProblem(c *gin.Context, p problem) {
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(p.Status, p)
}

func badRequest(c *gin.Context, err error) {
	respondProblem(c, problem{Type: typeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Detail: err.Error()})
}
