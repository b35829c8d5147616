package model

import (
	"time"

	"github.com/google/uuid"
)

// TrackStatus - статус жизненного цикла трека.
type TrackStatus string

const (
	TrackStatusPending   TrackStatus = "pending"
	TrackStatusCompleted TrackStatus = "completed"
	TrackStatusFailed    TrackStatus = "failed"
)

// IsTerminal сообщает, является ли статус терминальным.
// completed необратим; из failed переходов тоже нет.
func (s TrackStatus) IsTerminal() bool {
	return s == TrackStatusCompleted || s == TrackStatusFailed
}

// DefaultTrackDuration - длительность по умолчанию в секундах, когда
// провайдер не сообщил фактическую.
const DefaultTrackDuration = 180.0

// Track - запись о сгенерированном треке. Создается в pending при отправке
// задачи провайдеру и ровно один раз переводится в терминальный статус.
type Track struct {
	ID                  uuid.UUID   `db:"id" json:"id"`
	TaskID              string      `db:"task_id" json:"task_id"`
	OwnerID             *uuid.UUID  `db:"owner_id" json:"owner_id,omitempty"`
	Status              TrackStatus `db:"status" json:"status"`
	Title               string      `db:"title" json:"title"`
	Prompt              string      `db:"prompt" json:"prompt"`
	ExtendedPrompt      string      `db:"extended_prompt" json:"extended_prompt,omitempty"`
	ExtendedImagePrompt string      `db:"extended_image_prompt" json:"-"`
	AudioURL            *string     `db:"audio_url" json:"audio_url,omitempty"`
	ImageURL            *string     `db:"image_url" json:"image_url,omitempty"`
	Resolution          *string     `db:"resolution" json:"resolution,omitempty"`
	Duration            float64     `db:"duration" json:"duration"`
	CreatedAt           time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at" json:"updated_at"`
}

// CompleteTrackParams - поля, записываемые завершающим UPDATE'ом.
type CompleteTrackParams struct {
	Title      string
	Prompt     string
	AudioURL   string
	ImageURL   *string
	Resolution *string
	Duration   float64
}
