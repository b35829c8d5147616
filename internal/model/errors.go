package model

import "errors"

// Доменные ошибки, общие для слоев сервиса.
var (
	// ErrMissingTaskID - в сигнале о результате нет идентификатора задачи.
	ErrMissingTaskID = errors.New("task id is missing")

	// ErrTrackNotFound - запись трека не найдена.
	ErrTrackNotFound = errors.New("track not found")

	// ErrVerificationFailed - изображение недоступно или не декодируется.
	ErrVerificationFailed = errors.New("image verification failed")

	// ErrPersistFailed - ошибка записи в хранилище.
	ErrPersistFailed = errors.New("failed to persist record")

	// ErrProviderUnavailable - провайдер генерации недоступен (транспорт или 5xx).
	ErrProviderUnavailable = errors.New("generation provider is unavailable")

	// ErrInsufficientCredits - на балансе пользователя недостаточно кредитов.
	ErrInsufficientCredits = errors.New("insufficient credits")
)
