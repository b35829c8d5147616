package model

import "strings"

// GenerationResult - нормализованный сигнал о результате генерации.
// В эту форму приводятся payload'ы обоих каналов: входящего callback'а
// провайдера и ответа его status API при опросе.
type GenerationResult struct {
	TaskID   string
	Status   string // сырой маркер провайдера; может быть пустым
	AudioURL string
	ImageURL string
	Title    string
	Prompt   string
	Duration float64
}

// Маркеры провайдера, означающие неуспех задачи.
var failureMarkers = map[string]struct{}{
	"error":                 {},
	"failed":                {},
	"create_task_failed":    {},
	"generate_audio_failed": {},
	"sensitive_word_error":  {},
	"callback_exception":    {},
}

// HasMedia сообщает, содержит ли результат проигрываемый медиа-URL.
// При отсутствии поля status завершение выводится именно из этого признака.
func (r GenerationResult) HasMedia() bool {
	return r.AudioURL != ""
}

// IndicatesFailure сообщает, что провайдер явно отметил задачу проваленной.
func (r GenerationResult) IndicatesFailure() bool {
	_, ok := failureMarkers[strings.ToLower(r.Status)]
	return ok
}
