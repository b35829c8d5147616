package provider

import (
	"encoding/json"
	"fmt"

	"vibe-server/internal/model"
)

// rawResult - максимально толерантная форма payload'а провайдера.
// Провайдер непоследователен: поля могут приходить как в snake_case, так и в
// camelCase, на верхнем уровне или внутри "data", а для мультитрековых задач -
// первым элементом массива data.data.
type rawResult struct {
	TaskID       string          `json:"task_id"`
	TaskIDCamel  string          `json:"taskId"`
	Status       string          `json:"status"`
	CallbackType string          `json:"callbackType"`
	AudioURL     string          `json:"audio_url"`
	AudioCamel   string          `json:"audioUrl"`
	ImageURL     string          `json:"image_url"`
	ImageCamel   string          `json:"imageUrl"`
	Title        string          `json:"title"`
	Prompt       string          `json:"prompt"`
	Duration     float64         `json:"duration"`
	Data         json.RawMessage `json:"data"`
}

// taskID возвращает идентификатор задачи с учетом алиасов.
func (r *rawResult) taskID() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	return r.TaskIDCamel
}

func (r *rawResult) audioURL() string {
	if r.AudioURL != "" {
		return r.AudioURL
	}
	return r.AudioCamel
}

func (r *rawResult) imageURL() string {
	if r.ImageURL != "" {
		return r.ImageURL
	}
	return r.ImageCamel
}

// status: поле status приоритетнее callbackType
func (r *rawResult) statusMarker() string {
	if r.Status != "" {
		return r.Status
	}
	return r.CallbackType
}

// merge переносит в dst непустые поля из src, не перетирая уже известные.
func merge(dst *model.GenerationResult, src *rawResult) {
	if dst.TaskID == "" {
		dst.TaskID = src.taskID()
	}
	if dst.Status == "" {
		dst.Status = src.statusMarker()
	}
	if dst.AudioURL == "" {
		dst.AudioURL = src.audioURL()
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.imageURL()
	}
	if dst.Title == "" {
		dst.Title = src.Title
	}
	if dst.Prompt == "" {
		dst.Prompt = src.Prompt
	}
	if dst.Duration == 0 {
		dst.Duration = src.Duration
	}
}

// ParseResultPayload нормализует JSON payload провайдера в GenerationResult.
// Ищет поля на верхнем уровне, затем внутри "data", затем в первом элементе
// массива "data" следующего уровня. Возвращает model.ErrMissingTaskID, если
// идентификатор задачи не найден ни в одном из известных мест.
func ParseResultPayload(body []byte) (model.GenerationResult, error) {
	var result model.GenerationResult

	var top rawResult
	if err := json.Unmarshal(body, &top); err != nil {
		return result, fmt.Errorf("не удалось разобрать payload провайдера: %w", err)
	}
	merge(&result, &top)

	if len(top.Data) > 0 {
		// "data" может быть объектом или массивом клипов
		var nested rawResult
		if err := json.Unmarshal(top.Data, &nested); err == nil {
			merge(&result, &nested)
			if len(nested.Data) > 0 {
				var clips []rawResult
				if err := json.Unmarshal(nested.Data, &clips); err == nil && len(clips) > 0 {
					merge(&result, &clips[0])
				}
			}
		} else {
			var clips []rawResult
			if err := json.Unmarshal(top.Data, &clips); err == nil && len(clips) > 0 {
				merge(&result, &clips[0])
			}
		}
	}

	if result.TaskID == "" {
		return result, model.ErrMissingTaskID
	}
	return result, nil
}
