package response

import "github.com/gin-gonic/gin"

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Envelope{Success: true, Data: data})
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, failure(c, code, message, nil))
}

func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details any) {
	c.JSON(statusCode, failure(c, code, message, details))
}

// Abort writes an error and stops the handler chain.
func Abort(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, failure(c, code, message, nil))
}

func failure(c *gin.Context, code, message string, details any) Envelope {
	return Envelope{Error: &ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: c.Writer.Header().Get("X-Request-ID"),
	}}
}
