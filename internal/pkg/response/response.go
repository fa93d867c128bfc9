// internal/pkg/response/response.go
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint answers with. Code, Step and
// Reason carry the machine-readable failure details (provisioning step tags,
// access denial reasons) so clients never have to parse Message.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Code    string      `json:"code,omitempty"`
	Step    string      `json:"step,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, message string, err error) {
	fail(c, status, Response{Message: message}, err)
}

// Denied reports a policy decision with its machine-readable reason. Data
// carries decision-specific detail such as the roles that would have passed.
func Denied(c *gin.Context, status int, message, reason string, data interface{}) {
	fail(c, status, Response{Message: message, Reason: reason, Data: data}, nil)
}

// StepFailure reports a pipeline error tagged with the failed step and its
// code so the client can resume from that step on resubmission.
func StepFailure(c *gin.Context, status int, message, code, step string, err error) {
	fail(c, status, Response{Message: message, Code: code, Step: step}, err)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, nil)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, nil)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, nil)
}

// fail aborts the chain before writing so a later handler cannot append a
// second body.
func fail(c *gin.Context, status int, r Response, err error) {
	c.Abort()
	r.Success = false
	if err != nil {
		r.Error = err.Error()
	}
	c.JSON(status, r)
}
