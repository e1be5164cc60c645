package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeOK = "0"

	MessageOk = "ok"

	CodeError = "-1"
)

type codeMsg struct {
	Code    string
	Message string
}

func (c *codeMsg) Error() string {
	return fmt.Sprintf("code: %s, message: %s", c.Code, c.Message)
}

// NewError creates a new codeMsg.
func NewError(code string, msg string) error {
	return &codeMsg{Code: code, Message: msg}
}

type Response[T any] struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
}

func Ok(c *gin.Context) {
	c.JSON(http.StatusOK, wrapResponse(nil))
}

func OkJson(c *gin.Context, v any) {
	c.JSON(http.StatusOK, wrapResponse(v))
}

// Created answers 201 with the standard envelope.
func Created(c *gin.Context, v any) {
	c.JSON(http.StatusCreated, wrapResponse(v))
}

func Error(c *gin.Context, httpStatusCode int, e error) {
	c.JSON(httpStatusCode, wrapResponse(e))
}

// ErrorWithCode answers with an explicit business code instead of CodeError.
func ErrorWithCode(c *gin.Context, httpStatusCode int, code string, e error) {
	c.JSON(httpStatusCode, wrapResponse(&codeMsg{Code: code, Message: e.Error()}))
}

func wrapResponse(v any) Response[any] {
	var resp Response[any]
	if v == nil {
		resp.Code = CodeOK
		resp.Message = MessageOk
		resp.Success = true
		return resp
	}
	var cm *codeMsg
	if err, ok := v.(error); ok {
		if errors.As(err, &cm) {
			resp.Code = cm.Code
			resp.Message = cm.Message
			return resp
		}
		resp.Code = CodeError
		resp.Message = err.Error()
		return resp
	}
	resp.Code = CodeOK
	resp.Message = MessageOk
	resp.Success = true
	resp.Data = v
	return resp
}
