package user

import (
	"net/http"

	"carlyn/auth-api/internal"

	"github.com/gin-gonic/gin"
)

// UserVerify checks the registration code and creates the account
func UserVerify(c *gin.Context, d *internal.Deps) {
	var data codeBody
	if !bind(c, &data) {
		return
	}

	code, ok := data.code()
	if !ok {
		badCode(c)
		return
	}

	u, err := d.Auth.VerifyEmail(c.Request.Context(), data.Email, code)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Email verified. You can now log in",
		"user":    u,
	})
}

// UserResendCode mails a new registration code
func UserResendCode(c *gin.Context, d *internal.Deps) {
	var data emailBody
	if !bind(c, &data) {
		return
	}

	if err := d.Auth.ResendCode(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "A new verification code has been sent",
	})
}
