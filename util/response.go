package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope carried by every response.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type APIErrorParams struct {
	Msg string
	Err error
}

type APISuccessParams struct {
	Msg  string
	Data interface{}
}

// CallSuccessOK returns an API response with status code 200.
func CallSuccessOK(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: params.Msg,
		Status:  http.StatusOK,
		Data:    params.Data,
	})
}

// CallSuccessCreated returns an API response with status code 201.
func CallSuccessCreated(c *gin.Context, params APISuccessParams) {
	c.JSON(http.StatusCreated, APIResponse{
		Success: true,
		Message: params.Msg,
		Status:  http.StatusCreated,
		Data:    params.Data,
	})
}

// CallError returns an error response with the status derived from the
// error kind (see StatusFor). The error string is the kind's message, not
// the underlying storage error.
func CallError(c *gin.Context, params APIErrorParams) {
	status := StatusFor(params.Err)
	c.JSON(status, APIResponse{
		Success: false,
		Message: params.Msg,
		Status:  status,
		Error:   params.Err.Error(),
	})
}

// CallServerError returns an API response with status code 500 for
// unexpected failures that carry no business-rule kind.
func CallServerError(c *gin.Context, params APIErrorParams) {
	c.JSON(http.StatusInternalServerError, APIResponse{
		Success: false,
		Message: params.Msg,
		Status:  http.StatusInternalServerError,
		Error:   ErrInternalServer.Error(),
	})
}
