// Package autherr defines the error taxonomy shared by handlers, services
// and repositories. Each value carries a stable machine code, the HTTP
// status it maps to at the edge, and an optional structured detail payload.
// Handlers should translate these into the documented response envelope and
// must never leak the internals of unexpected errors.
package autherr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a taxonomy error. It is immutable once constructed; use the
// constructor functions below rather than building values by hand so that
// codes and statuses stay consistent across the service.
type Error struct {
	Code    string         // stable machine-readable code, e.g. "invalid_token"
	Status  int            // HTTP status the edge maps this error to
	Message string         // human-readable summary, safe for clients
	Detail  map[string]any // optional structured detail, safe for clients

	cause error // wrapped upstream failure; logged at the edge, never sent
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the upstream cause to errors.Is/As and to edge logging.
func (e *Error) Unwrap() error {
	return e.cause
}

// As extracts a taxonomy error from an error chain. Returns nil when the
// chain contains no *Error.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// NotAuthenticated covers a missing or empty bearer token.
func NotAuthenticated() *Error {
	return &Error{Code: "not_authenticated", Status: http.StatusUnauthorized, Message: "authentication required"}
}

// InvalidToken covers signature, structural and type-mismatch failures, as
// well as revoked or stale tokens. The reason is intentionally not exposed.
func InvalidToken() *Error {
	return &Error{Code: "invalid_token", Status: http.StatusBadRequest, Message: "token is invalid"}
}

// ExpiredToken is raised when exp <= now.
func ExpiredToken() *Error {
	return &Error{Code: "expired_token", Status: http.StatusBadRequest, Message: "token has expired"}
}

// WrongLoginData covers both an unknown login and a failed password check so
// the two are indistinguishable to a caller.
func WrongLoginData() *Error {
	return &Error{Code: "wrong_login_data", Status: http.StatusBadRequest, Message: "wrong username or password"}
}

// AccessDenied is an RBAC failure; need lists the permissions the caller lacked.
func AccessDenied(need []string) *Error {
	return &Error{
		Code:    "access_denied",
		Status:  http.StatusForbidden,
		Message: "insufficient permissions",
		Detail:  map[string]any{"need_permissions": need},
	}
}

// InsufficientSecurityLevel rejects an actor whose level is not strictly
// above the target's.
func InsufficientSecurityLevel() *Error {
	return &Error{Code: "insufficient_security_level", Status: http.StatusForbidden, Message: "security level too low for target"}
}

// PermissionDenied covers non-RBAC ownership edges, e.g. deactivating a
// session owned by another user.
func PermissionDenied(msg string) *Error {
	return &Error{Code: "permission_denied", Status: http.StatusForbidden, Message: msg}
}

func NotFoundUser() *Error {
	return &Error{Code: "not_found_user", Status: http.StatusNotFound, Message: "user not found"}
}

func NotFoundRole() *Error {
	return &Error{Code: "not_found_role", Status: http.StatusNotFound, Message: "role not found"}
}

// NotFoundPermissions lists the permission names that could not be resolved.
func NotFoundPermissions(names []string) *Error {
	return &Error{
		Code:    "not_found_permissions",
		Status:  http.StatusNotFound,
		Message: "permissions not found",
		Detail:  map[string]any{"names": names},
	}
}

func NotFoundOrInactiveSession() *Error {
	return &Error{Code: "not_found_or_inactive_session", Status: http.StatusNotFound, Message: "session not found or inactive"}
}

// DuplicateUser reports which unique field collided and with what value.
func DuplicateUser(field, value string) *Error {
	return &Error{
		Code:    "duplicate_user",
		Status:  http.StatusConflict,
		Message: "user already exists",
		Detail:  map[string]any{"field": field, "value": value},
	}
}

func DuplicateRole(name string) *Error {
	return &Error{
		Code:    "duplicate_role",
		Status:  http.StatusConflict,
		Message: "role already exists",
		Detail:  map[string]any{"name": name},
	}
}

func DuplicatePermission(name string) *Error {
	return &Error{
		Code:    "duplicate_permission",
		Status:  http.StatusConflict,
		Message: "permission already exists",
		Detail:  map[string]any{"name": name},
	}
}

// ProtectedPermission rejects mutation of a permission from the protected set
// by a non-system principal.
func ProtectedPermission(name string) *Error {
	return &Error{
		Code:    "protected_permission",
		Status:  http.StatusConflict,
		Message: "permission is protected",
		Detail:  map[string]any{"name": name},
	}
}

func InvalidRoleName(reason string) *Error {
	return &Error{Code: "invalid_role_name", Status: http.StatusBadRequest, Message: reason}
}

func PasswordMismatch() *Error {
	return &Error{Code: "password_mismatch", Status: http.StatusBadRequest, Message: "passwords do not match"}
}

func InvalidPassword(reason string) *Error {
	return &Error{Code: "invalid_password", Status: http.StatusBadRequest, Message: reason}
}

func OAuthStateNotFound() *Error {
	return &Error{Code: "oauth_state_not_found", Status: http.StatusNotFound, Message: "oauth state not found or already used"}
}

func LinkedAnotherUserOAuth() *Error {
	return &Error{Code: "linked_another_user_oauth", Status: http.StatusConflict, Message: "oauth account is linked to another user"}
}

func UnknownOAuthProvider(name string) *Error {
	return &Error{
		Code:    "unknown_oauth_provider",
		Status:  http.StatusBadRequest,
		Message: "unknown oauth provider",
		Detail:  map[string]any{"provider": name},
	}
}

// RateLimited is only produced at the boundary by the rate limiter.
func RateLimited(retryAfterSec int) *Error {
	return &Error{
		Code:    "rate_limited",
		Status:  http.StatusTooManyRequests,
		Message: "rate limit exceeded",
		Detail:  map[string]any{"retry_after": retryAfterSec},
	}
}

// Transport wraps an underlying store or provider failure. The cause is kept
// out of the client-visible detail but stays on the error chain for logging.
func Transport(err error) *Error {
	return &Error{Code: "transport", Status: http.StatusServiceUnavailable, Message: "upstream dependency failed", cause: err}
}
