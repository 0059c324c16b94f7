/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:         {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Chat Content Errors
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long."},
	ErrNotInSession:          {Code: ErrNotInSession, Message: "Sign in to send messages."},

	// 3xxx: User, Session, and Security Errors
	ErrUserAlreadyExists:       {Code: ErrUserAlreadyExists, Message: "Username or email already exists.", Status: http.StatusBadRequest},
	ErrInvalidCredentials:      {Code: ErrInvalidCredentials, Message: "Invalid email or password.", Status: http.StatusUnauthorized},
	ErrInvalidToken:            {Code: ErrInvalidToken, Message: "Your session is invalid or has expired.", Status: http.StatusForbidden},
	ErrUnauthorized:            {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrUnknownIdentity:         {Code: ErrUnknownIdentity, Message: "Account not found. Please sign in again.", Status: http.StatusNotFound},
	ErrAccountBanned:           {Code: ErrAccountBanned, Message: "This account has been banned.", Status: http.StatusForbidden},
	ErrReactivationRequired:    {Code: ErrReactivationRequired, Message: "Your account was unbanned. Sign in again to reactivate it.", Status: http.StatusForbidden},
	ErrCannotBanAdmin:          {Code: ErrCannotBanAdmin, Message: "Administrators cannot be banned.", Status: http.StatusForbidden},
	ErrAdminRequired:           {Code: ErrAdminRequired, Message: "Access denied. Administrator privileges required.", Status: http.StatusForbidden},
	ErrUserNotFound:            {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},
	ErrAlreadyAdmin:            {Code: ErrAlreadyAdmin, Message: "User is already an administrator.", Status: http.StatusBadRequest},
	ErrAvatarInvalid:           {Code: ErrAvatarInvalid, Message: "Invalid avatar data. Expected an image data URL of at most %d KB.", Status: http.StatusBadRequest},
	ErrExternalProfileNotFound: {Code: ErrExternalProfileNotFound, Message: "Roblox user not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown:              {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrExternalLookupFailed: {Code: ErrExternalLookupFailed, Message: "Could not load the Roblox avatar.", Status: http.StatusInternalServerError},
	ErrFileStorageFailed:    {Code: ErrFileStorageFailed, Message: "File upload failed. Please try again.", Status: http.StatusInternalServerError},
}
