package service

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"

	// Регистрируем декодеры поддерживаемых форматов обложек
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"go.uber.org/zap"

	"vibe-server/internal/model"
)

// MinSize - минимально допустимый размер обложки в пикселях.
type MinSize struct {
	Width  int
	Height int
}

// VerifiedImage - результат инспекции изображения.
type VerifiedImage struct {
	URL    string
	Width  int
	Height int
}

// MeetsThreshold сравнивает фактические размеры с порогом.
func (v VerifiedImage) MeetsThreshold(min MinSize) bool {
	return v.Width >= min.Width && v.Height >= min.Height
}

// Resolution возвращает строку вида "2048x1152".
func (v VerifiedImage) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// ImageVerifier определяет интерфейс инспекции обложек. Записи не мутирует.
type ImageVerifier interface {
	// Verify скачивает изображение и возвращает его фактические размеры.
	// При недоступном URL или недекодируемом изображении возвращает
	// model.ErrVerificationFailed.
	Verify(ctx context.Context, url string, min MinSize) (VerifiedImage, error)
}

type httpImageVerifier struct {
	client *http.Client
	logger *zap.Logger
}

// Compile-time check to ensure httpImageVerifier implements ImageVerifier
var _ ImageVerifier = (*httpImageVerifier)(nil)

// NewImageVerifier создает верификатор, скачивающий изображения по HTTP.
func NewImageVerifier(timeout time.Duration, logger *zap.Logger) ImageVerifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &httpImageVerifier{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("ImageVerifier"),
	}
}

// Verify скачивает изображение и декодирует его заголовок.
// Параметр min в самой проверке не участвует (решение принимает вызывающий),
// но логируется для диагностики.
func (v *httpImageVerifier) Verify(ctx context.Context, url string, min MinSize) (VerifiedImage, error) {
	log := v.logger.With(zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return VerifiedImage{}, fmt.Errorf("%w: некорректный URL: %v", model.ErrVerificationFailed, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		log.Warn("Image fetch failed", zap.Error(err))
		return VerifiedImage{}, fmt.Errorf("%w: %v", model.ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn("Image fetch returned non-200", zap.Int("status", resp.StatusCode))
		return VerifiedImage{}, fmt.Errorf("%w: status %d", model.ErrVerificationFailed, resp.StatusCode)
	}

	// DecodeConfig читает только заголовок, без полного декодирования пикселей
	cfg, format, err := image.DecodeConfig(resp.Body)
	if err != nil {
		log.Warn("Image decode failed", zap.Error(err))
		return VerifiedImage{}, fmt.Errorf("%w: %v", model.ErrVerificationFailed, err)
	}

	verified := VerifiedImage{URL: url, Width: cfg.Width, Height: cfg.Height}
	log.Debug("Image verified",
		zap.String("format", format),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Bool("meets_threshold", verified.MeetsThreshold(min)))
	return verified, nil
}
