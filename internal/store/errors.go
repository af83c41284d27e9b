package store

import domainerrors "github.com/katalogpart/katalog-server/internal/errors"

// Sentinel errors.
var (
	ErrNotFound      = domainerrors.NotFound("record not found")
	ErrAlreadyExists = domainerrors.Conflict("record already exists")
)
