package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func respond(c *gin.Context, status int, data interface{}) {
	switch v := data.(type) {
	case string:
		c.JSON(status, gin.H{"message": v})
	default:
		c.JSON(status, v)
	}
}

func JSON200(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, data)
}

func JSON400(c *gin.Context, data interface{}) {
	respond(c, http.StatusBadRequest, data)
}

func JSON404(c *gin.Context, data interface{}) {
	respond(c, http.StatusNotFound, data)
}

func JSON405(c *gin.Context, data interface{}) {
	respond(c, http.StatusMethodNotAllowed, data)
}

func JSON409(c *gin.Context, data interface{}) {
	respond(c, http.StatusConflict, data)
}

func JSON500(c *gin.Context, data interface{}) {
	respond(c, http.StatusInternalServerError, data)
}

// JSONStatus routes to the helper matching an arbitrary status code.
func JSONStatus(c *gin.Context, status int, data interface{}) {
	respond(c, status, data)
}
