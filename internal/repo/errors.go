package repo

import "errors"

var (
	// ErrNotFound se devuelve cuando no se encuentra ningún registro.
	ErrNotFound = errors.New("registro no encontrado")
)
