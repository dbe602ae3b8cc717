// Package root holds the endpoints that aren't tied to a user
package root

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

// Health reports that the server is up
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Index greets whoever opens the API root
func Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": viper.GetString("app.name") + " API",
	})
}
