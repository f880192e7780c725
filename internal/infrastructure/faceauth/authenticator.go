package faceauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
	"cell-guard/internal/infrastructure/overlay"
)

// Config настройки клиента сервиса распознавания лиц
type Config struct {
	Endpoint            string
	SimilarityThreshold float64
	AllowedIdentities   []string // если пусто, допускается любое известное лицо
	Timeout             time.Duration
}

// Authenticator клиент сервиса распознавания лиц.
// Кадр отправляется JPEG-ом на POST {endpoint}/recognize, ответ размечается на том же кадре.
type Authenticator struct {
	endpoint  string
	client    *http.Client
	threshold float64
	allowed   map[string]struct{}
	renderer  *overlay.Renderer
}

type recognizeResponse struct {
	Recognitions []struct {
		BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
		Identity   *string   `json:"identity"`
		Similarity float64   `json:"similarity"`
		IsKnown    bool      `json:"is_known"`
	} `json:"recognitions"`
}

// New создаёт клиента. Порог сходства по умолчанию 0.5.
func New(cfg Config, renderer *overlay.Renderer) *Authenticator {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedIdentities))
	for _, id := range cfg.AllowedIdentities {
		if id = strings.TrimSpace(id); id != "" {
			allowed[strings.ToLower(id)] = struct{}{}
		}
	}
	return &Authenticator{
		endpoint:  cfg.Endpoint,
		client:    &http.Client{Timeout: cfg.Timeout},
		threshold: cfg.SimilarityThreshold,
		allowed:   allowed,
		renderer:  renderer,
	}
}

// Process распознаёт лица и рисует их рамки на кадре.
func (a *Authenticator) Process(ctx context.Context, frame *entity.Frame) (entity.AuthResult, error) {
	result := entity.NewAuthResult(frame)
	if frame.Empty() {
		return result, fmt.Errorf("recognize: empty frame")
	}

	parsed, err := a.recognize(ctx, frame)
	if err != nil {
		return result, err
	}

	for _, rec := range parsed.Recognitions {
		if len(rec.BBox) != 4 {
			continue
		}
		match := entity.FaceMatch{
			Box: entity.BoundingBox{
				X:      int(rec.BBox[0]),
				Y:      int(rec.BBox[1]),
				Width:  int(rec.BBox[2] - rec.BBox[0]),
				Height: int(rec.BBox[3] - rec.BBox[1]),
			},
			Similarity: rec.Similarity,
			Identity:   entity.UnknownIdentity,
		}
		if rec.IsKnown && rec.Identity != nil && rec.Similarity >= a.threshold {
			match.Known = true
			match.Identity = *rec.Identity
		}
		result.Faces = append(result.Faces, match)

		if !result.Authorized && match.Known && a.permitted(match.Identity) {
			result.Authorized = true
			result.Identity = match.Identity
		}
	}

	a.renderer.Faces(frame, result.Faces)
	return result, nil
}

func (a *Authenticator) permitted(identity string) bool {
	if len(a.allowed) == 0 {
		return true
	}
	_, ok := a.allowed[strings.ToLower(identity)]
	return ok
}

func (a *Authenticator) recognize(ctx context.Context, frame *entity.Frame) (*recognizeResponse, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(fw, frame, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint+"/recognize", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognize request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("face service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode recognize response: %w", err)
	}
	return &parsed, nil
}

// Проверка реализации интерфейса
var _ port.FaceAuthenticator = (*Authenticator)(nil)
