// Package queue defines message payloads exchanged over the message broker.
// Events are published only after the owning relational transaction has
// committed; consumers must be idempotent because delivery is at-least-once.
package queue

// Queue names, one per event type.
const (
	QueueUserCreated            = "user.created"
	QueueVerifyRequested        = "user.verify_requested"
	QueuePasswordResetRequested = "user.password_reset_requested"
)

// UserCreatedEvent is published once a registration commits. It carries the
// raw single-use verification token so the email consumer can render the
// verification link without touching the primary database.
type UserCreatedEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	VerifyToken string `json:"verify_token"`
	CreatedAt   string `json:"created_at"`
}

// VerifyRequestedEvent is published when a user explicitly asks for the
// verification email to be re-sent.
type VerifyRequestedEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	VerifyToken string `json:"verify_token"`
	RequestedAt string `json:"requested_at"`
}

// PasswordResetRequestedEvent is published when a password reset is
// requested. ResetToken is the raw single-use token embedded in the link.
type PasswordResetRequestedEvent struct {
	UserID      uint64 `json:"user_id"`
	Email       string `json:"email"`
	ResetToken  string `json:"reset_token"`
	RequestedAt string `json:"requested_at"`
}
