package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"vibe-server/internal/model"
)

// TrackUpdatePayload - уведомление о терминальном переходе трека,
// публикуемое в очередь клиентских обновлений.
type TrackUpdatePayload struct {
	TaskID   string  `json:"task_id"`
	OwnerID  string  `json:"owner_id,omitempty"`
	Status   string  `json:"status"`
	Title    string  `json:"title,omitempty"`
	AudioURL *string `json:"audio_url,omitempty"`
	ImageURL *string `json:"image_url,omitempty"`
}

// Notifier определяет интерфейс для отправки уведомлений о завершении трека.
type Notifier interface {
	// NotifyTrackUpdate отправляет уведомление в очередь клиентских обновлений.
	NotifyTrackUpdate(ctx context.Context, payload TrackUpdatePayload) error
}

// rabbitMQNotifier реализует Notifier поверх RabbitMQ.
type rabbitMQNotifier struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// Compile-time check to ensure rabbitMQNotifier implements Notifier
var _ Notifier = (*rabbitMQNotifier)(nil)

// NewRabbitMQNotifier создает Notifier для RabbitMQ.
// Важно: предполагается, что канал уже открыт и будет закрыт снаружи (в main).
func NewRabbitMQNotifier(ch *amqp.Channel, queueName string, logger *zap.Logger) (Notifier, error) {
	// Объявляем durable очередь уведомлений
	_, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("не удалось объявить очередь уведомлений '%s': %w", queueName, err)
	}

	return &rabbitMQNotifier{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("RabbitMQNotifier"),
	}, nil
}

// NotifyTrackUpdate публикует уведомление в очередь RabbitMQ.
func (n *rabbitMQNotifier) NotifyTrackUpdate(ctx context.Context, payload TrackUpdatePayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "vibe-server",
			MessageId:    payload.TaskID + "-update",
		},
	)
	if err != nil {
		n.logger.Error("Failed to publish track update",
			zap.String("task_id", payload.TaskID), zap.Error(err))
		return fmt.Errorf("ошибка публикации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	n.logger.Debug("Track update published",
		zap.String("task_id", payload.TaskID), zap.String("status", payload.Status))
	return nil
}

// NotificationFromTrack собирает payload уведомления из записи трека.
func NotificationFromTrack(track *model.Track) TrackUpdatePayload {
	payload := TrackUpdatePayload{
		TaskID:   track.TaskID,
		Status:   string(track.Status),
		Title:    track.Title,
		AudioURL: track.AudioURL,
		ImageURL: track.ImageURL,
	}
	if track.OwnerID != nil {
		payload.OwnerID = track.OwnerID.String()
	}
	return payload
}
