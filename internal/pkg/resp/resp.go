/*
Package resp provides helper functions for constructing and sending standardized HTTP JSON responses.

Every body shares the envelope {code, message, data}: code 0 means success, any other
value is an errs code and data then carries the structured error details, if any.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"chatyni/internal/pkg/errs"
	"chatyni/internal/pkg/logx"
)

// JSONResponse defines the standardized JSON response structure returned by the application to clients.
type JSONResponse struct {
	// Code is the business status code (0 for success, others for specific errors, see errs package).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload (success data or error details).
	Data any `json:"data,omitempty"`
}

// RespondJSON is a generic response function used to set the Content-Type and send the JSON payload.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	if _, err := w.Write(response); err != nil {
		logx.Warn("Failed to write response body", "error", err.Error())
	}
}

// RespondSuccess sends a successful HTTP response (HTTP 200 OK).
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{Code: 0, Message: "success", Data: data})
}

// RespondCreated sends an HTTP 201 response with a human-readable message.
func RespondCreated(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusCreated, JSONResponse{Code: 0, Message: message})
}

// RespondMessage sends an HTTP 200 response whose only content is a human-readable message.
func RespondMessage(w http.ResponseWriter, r *http.Request, message string) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{Code: 0, Message: message})
}

// RespondError sends an HTTP response containing custom error information.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	if len(customErr.Details) > 0 {
		res.Data = customErr.Details
	}

	RespondJSON(w, r, customErr.Status, res)
}
