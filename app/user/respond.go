package user

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"carlyn/auth-api/internal/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusOf = map[auth.Kind]int{
	auth.KindInvalid:      http.StatusBadRequest,
	auth.KindInvalidCode:  http.StatusBadRequest,
	auth.KindUnauthorized: http.StatusUnauthorized,
	auth.KindNotFound:     http.StatusNotFound,
	auth.KindConflict:     http.StatusConflict,
	auth.KindExpired:      http.StatusGone,
	auth.KindRateLimited:  http.StatusTooManyRequests,
	auth.KindInternal:     http.StatusInternalServerError,
}

// fail writes the response for an error returned by the auth service
func fail(c *gin.Context, err error) {
	requestID := c.MustGet("requestID").(string)

	var e *auth.Error
	if !errors.As(err, &e) {
		e = &auth.Error{Kind: auth.KindInternal, Message: "Internal server error", Err: err}
	}

	status, ok := statusOf[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed", zap.Error(e.Err), zap.String("requestID", requestID))
	}

	body := gin.H{
		"error":     e.Message,
		"requestID": requestID,
	}

	if e.Kind == auth.KindRateLimited {
		c.Header("Retry-After", strconv.Itoa(e.RetryAfter))
		body["retryAfter"] = e.RetryAfter
	}

	c.JSON(status, body)
}

// bind decodes the JSON body into dst and answers 400 (or 413) when it can't
func bind(c *gin.Context, dst any) bool {
	requestID := c.MustGet("requestID").(string)

	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":     "Request body size exceeds limit",
			"requestID": requestID,
		})
		return false
	}

	c.JSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"requestID": requestID,
	})

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
	return false
}

type emailBody struct {
	Email string `json:"email"`
}

// codeBody accepts the code as a JSON number or a numeric string
type codeBody struct {
	Email string      `json:"email"`
	Code  json.Number `json:"code"`
}

func (b *codeBody) code() (int, bool) {
	n, err := strconv.Atoi(b.Code.String())
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func badCode(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":     "Code must be a 6 digit number",
		"requestID": c.MustGet("requestID").(string),
	})
}
