package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrFileAccess путь из сообщения не существует или не читается
	ErrFileAccess = errors.New("file access error")
	// ErrDecode байты не являются поддерживаемым изображением
	ErrDecode = errors.New("decode error")
	// ErrInference модель не готова или детекция завершилась ошибкой
	ErrInference = errors.New("inference error")

	ErrModelNotLoaded  = fmt.Errorf("%w: model is not loaded", ErrInference)
	ErrModelLoadFailed = fmt.Errorf("%w: model load failed", ErrInference)
)
