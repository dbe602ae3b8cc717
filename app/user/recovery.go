package user

import (
	"net/http"

	"carlyn/auth-api/internal"

	"github.com/gin-gonic/gin"
)

type resetBody struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

// UserForgotPassword mails a recovery code to an existing account
func UserForgotPassword(c *gin.Context, d *internal.Deps) {
	var data emailBody
	if !bind(c, &data) {
		return
	}

	if err := d.Auth.ForgotPassword(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Recovery code sent. Check your email",
	})
}

// UserVerifyRecoveryCode confirms a recovery code
func UserVerifyRecoveryCode(c *gin.Context, d *internal.Deps) {
	var data codeBody
	if !bind(c, &data) {
		return
	}

	code, ok := data.code()
	if !ok {
		badCode(c)
		return
	}

	if err := d.Auth.VerifyRecoveryCode(c.Request.Context(), data.Email, code); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Code verified. You can now set a new password",
	})
}

// UserResetPassword sets the new password after a confirmed recovery
func UserResetPassword(c *gin.Context, d *internal.Deps) {
	var data resetBody
	if !bind(c, &data) {
		return
	}

	if err := d.Auth.ResetPassword(c.Request.Context(), data.Email, data.NewPassword); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password updated",
	})
}

// UserResendRecoveryCode mails a new recovery code
func UserResendRecoveryCode(c *gin.Context, d *internal.Deps) {
	var data emailBody
	if !bind(c, &data) {
		return
	}

	if err := d.Auth.ResendRecoveryCode(c.Request.Context(), data.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "A new recovery code has been sent",
	})
}
