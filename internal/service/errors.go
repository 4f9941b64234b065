package service

import "errors"

var (
	// ErrInvalidRequest возвращается для некорректных входных данных до любого внешнего вызова.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrConfiguration возвращается, если не настроен ключ провайдера.
	ErrConfiguration = errors.New("payment provider is not configured")
	// ErrProvider оборачивает ошибку вызова платёжного провайдера.
	ErrProvider = errors.New("payment provider error")
	// ErrSignature возвращается, если подпись webhook не прошла проверку.
	ErrSignature = errors.New("invalid signature")
	// ErrPersistence оборачивает ошибку записи в хранилище, повтор безопасен.
	ErrPersistence = errors.New("persistence error")
)
