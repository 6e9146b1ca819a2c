package utils

import (
	"errors"
	"net/http"

	pkgError "github.com/AzielCF/az-relay/pkg/error"
)

type ResponseData struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Results any    `json:"results,omitempty"`
}

// Success builds the envelope returned by every handler on the happy path.
func Success(message string, results any) ResponseData {
	return ResponseData{
		Status:  http.StatusOK,
		Code:    "SUCCESS",
		Message: message,
		Success: true,
		Results: results,
	}
}

// Failure maps err into the structured failure envelope. Errors that do not
// implement pkgError.GenericError are reported as internal errors.
func Failure(err error) ResponseData {
	res := ResponseData{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
		Error:   err.Error(),
	}

	var generic pkgError.GenericError
	if errors.As(err, &generic) {
		res.Status = generic.StatusCode()
		res.Code = generic.ErrCode()
	}
	return res
}

// PanicIfNeeded panics with err so middleware.Recovery renders it.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
