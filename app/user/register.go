package user

import (
	"net/http"

	"carlyn/auth-api/internal"
	"carlyn/auth-api/internal/auth"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// UserRegister stages a registration and mails the verification code
func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if !bind(c, &data) {
		return
	}

	err := d.Auth.Register(c.Request.Context(), auth.RegisterInput{
		FullName: data.FullName,
		Email:    data.Email,
		Phone:    data.Phone,
		Password: data.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Verification code sent. Check your email",
		"requestID": requestID,
	})
}
