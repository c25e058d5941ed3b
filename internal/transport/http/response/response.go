package response

import "github.com/gin-gonic/gin"

// Body is the shape of every non-record JSON response.
type Body struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func Message(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, Body{Message: message})
}

// Error writes message plus err's text as the detail field.
func Error(c *gin.Context, httpStatus int, message string, err error) {
	body := Body{Message: message}
	if err != nil {
		body.Error = err.Error()
	}
	c.JSON(httpStatus, body)
}

// Abort writes a message body and stops the handler chain.
func Abort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, Body{Message: message})
}
