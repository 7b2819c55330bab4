// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. The
// ledger's own sentinels (not found, active row exists) live in the
// validation package since the engine owns those contracts.
package repository

import "errors"

// ErrEmailExists is returned when creating a user whose email address
// is already taken. Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")
