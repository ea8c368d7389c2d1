package e

import "fmt"

var (
	// Ошибки обработки изображений
	ErrDecode            = fmt.Errorf("image could not be decoded")
	ErrEncode            = fmt.Errorf("image could not be encoded")
	ErrUnsupportedFormat = fmt.Errorf("unsupported image format")

	// Ошибки хранилища артефактов
	ErrStoreWrite   = fmt.Errorf("artifact could not be stored")
	ErrNotFound     = fmt.Errorf("image is no longer available")
	ErrStoreInit    = fmt.Errorf("artifact store could not be initialized")
	ErrLockNotOwned = fmt.Errorf("lock is not owned")

	// Ошибки конфигурации
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 400 Bad Request
	ErrStatusBadRequest     = fmt.Errorf("bad request")
	ErrExpectedMultipart    = fmt.Errorf("expected multipart/form-data")
	ErrUnsupportedMediaType = fmt.Errorf("unsupported media type")
	ErrFileTooLarge         = fmt.Errorf("file too large")

	// 500 Internal Server Error
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
