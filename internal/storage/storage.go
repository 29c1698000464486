package storage

import (
	"context"
	"errors"
)

// UploadInput representa una operación de subida simple.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult describe el artefacto persistido.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader define el comportamiento básico para almacenar blobs (actas).
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// NoopUploader devuelve error indicando que no hay backend configurado.
type NoopUploader struct{}

// Upload siempre retorna error, señalando que el recurso no está disponible.
func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, errors.New("storage: uploader no configurado")
}
