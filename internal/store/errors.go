package store

import "errors"

var (
	// ErrNotFound indica que la entidad (o el índice que apunta a ella) no existe.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indica un duplicado: el id, username o email ya está tomado.
	ErrConflict = errors.New("store: conflict")

	// ErrInvalidInput indica datos inválidos para la operación.
	ErrInvalidInput = errors.New("store: invalid input")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }
