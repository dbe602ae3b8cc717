package user

import (
	"net/http"

	"carlyn/auth-api/internal"

	"github.com/gin-gonic/gin"
)

// UserFetch returns the profile of the logged in user
func UserFetch(c *gin.Context, d *internal.Deps) {
	u, err := d.Auth.Profile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": u,
	})
}
