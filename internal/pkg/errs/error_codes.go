/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRequestEntityTooLarge indicates that the request body size exceeded the server limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1007
)

// 2xxx: Chat Content Errors
const (
	// ErrMessageContentTooLong indicates that the user's message content exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrNotInSession indicates that a socket without a bound identity tried to act as a user.
	ErrNotInSession = 2202
)

// 3xxx: User, Session, and Security Errors
const (
	// ErrUserAlreadyExists indicates that the username or email is already registered.
	ErrUserAlreadyExists = 3101

	// ErrInvalidCredentials indicates that the email/password pair did not verify.
	ErrInvalidCredentials = 3102

	// ErrInvalidToken indicates a malformed, expired, or wrongly signed bearer token.
	ErrInvalidToken = 3103

	// ErrUnauthorized indicates that a protected route was called without a bearer token.
	ErrUnauthorized = 3104

	// ErrUnknownIdentity indicates a valid token whose user no longer exists (directory reset).
	ErrUnknownIdentity = 3105

	// ErrAccountBanned indicates that the account is currently banned. Details carry banDetails.
	ErrAccountBanned = 3201

	// ErrReactivationRequired indicates that the ban has lapsed and the user must sign in again.
	ErrReactivationRequired = 3202

	// ErrCannotBanAdmin indicates an attempt to ban an administrator.
	ErrCannotBanAdmin = 3203

	// ErrAdminRequired indicates that the route requires the admin role.
	ErrAdminRequired = 3204

	// ErrUserNotFound indicates that the target user does not exist.
	ErrUserNotFound = 3301

	// ErrAlreadyAdmin indicates that the target user already holds the admin role.
	ErrAlreadyAdmin = 3302

	// ErrAvatarInvalid indicates that the submitted avatar is not an accepted image data URL.
	ErrAvatarInvalid = 3401

	// ErrExternalProfileNotFound indicates that the external identity lookup found no such name.
	ErrExternalProfileNotFound = 3402
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrExternalLookupFailed indicates that an external avatar or identity service failed.
	ErrExternalLookupFailed = 5001

	// ErrFileStorageFailed indicates that object storage rejected an upload.
	ErrFileStorageFailed = 5002
)
