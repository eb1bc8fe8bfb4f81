package record

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no row matched. It wraps sql.ErrNoRows.
	ErrNotFound = fmt.Errorf("record not found: %w", sql.ErrNoRows)

	ErrNoPrimaryKey  = errors.New("model has no primary key column")
	ErrNotStruct     = errors.New("model type must be a struct")
	ErrUnknownColumn = errors.New("unknown column")
	ErrInvalidValue  = errors.New("invalid value for column")
)
