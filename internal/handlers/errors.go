package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/terralotes/terralotes-api/internal/services"
)

// respondError maps service errors to HTTP responses. Validation problems
// are 422, business conflicts 409, denied operations 403 and unknown
// resources 404; anything untyped is a 500.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsPermission(err):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
