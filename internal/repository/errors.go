// Package repository implements data access over the relational store and
// the Redis revocation store. This file defines sentinel error values shared
// by the repositories so higher layers can distinguish failure scenarios
// without string matching.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist (or is soft
// deleted). Handlers translate it into the matching 404 taxonomy error.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique constraint, e.g.
// a second active session for the same (user, device) or a role name that is
// already taken. Callers either retry the read path or map it to a 409.
var ErrDuplicate = errors.New("duplicate")

// ErrMissing is returned by the revocation store when a key is absent: an
// already-consumed OAuth state or single-use token, or one that expired.
var ErrMissing = errors.New("missing")

const mysqlDuplicateEntry = "1062"
