package user

import (
	"net/http"

	"carlyn/auth-api/internal"
	"carlyn/auth-api/internal/auth"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleBody struct {
	Credential string `json:"credential"`
}

// UserLogin checks the credentials and returns an auth token
func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if !bind(c, &data) {
		return
	}

	s, err := d.Auth.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		fail(c, err)
		return
	}

	respondSession(c, d, s)
}

// UserGoogleLogin signs in with a Google ID token
func UserGoogleLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data googleBody
	if !bind(c, &data) {
		return
	}

	if data.Credential == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Credential field can't be empty",
			"requestID": requestID,
		})
		return
	}

	s, err := d.Auth.GoogleLogin(c.Request.Context(), data.Credential)
	if err != nil {
		fail(c, err)
		return
	}

	respondSession(c, d, s)
}

func respondSession(c *gin.Context, d *internal.Deps, s *auth.Session) {
	c.SetCookie("auth_token", s.Token, int(d.Tokens.TTL.Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{
		"token": s.Token,
		"user":  s.User,
	})
}
