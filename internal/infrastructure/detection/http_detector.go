package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"time"

	"cell-guard/internal/domain/entity"
	"cell-guard/internal/domain/port"
)

// HTTPDetectorConfig настройки клиента сервиса детекции
type HTTPDetectorConfig struct {
	Endpoint       string
	MaxResults     int
	ScoreThreshold float64
	Timeout        time.Duration
}

// HTTPDetector клиент внешнего сервиса детекции объектов.
// Кадр отправляется JPEG-ом в multipart-форме на POST {endpoint}/detect.
type HTTPDetector struct {
	endpoint       string
	client         *http.Client
	maxResults     int
	scoreThreshold float64
}

type detectResponse struct {
	Detections []struct {
		Class      string    `json:"class"`
		Confidence float64   `json:"confidence"`
		BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
	} `json:"detections"`
	InferenceTimeMs float64 `json:"inference_time_ms"`
}

// NewHTTPDetector создаёт клиента. Значения по умолчанию: 5 объектов, порог 0.25.
func NewHTTPDetector(cfg HTTPDetectorConfig) *HTTPDetector {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.ScoreThreshold <= 0 {
		cfg.ScoreThreshold = 0.25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &HTTPDetector{
		endpoint:       cfg.Endpoint,
		client:         &http.Client{Timeout: cfg.Timeout},
		maxResults:     cfg.MaxResults,
		scoreThreshold: cfg.ScoreThreshold,
	}
}

// Detect отправляет кадр и разбирает ответ.
func (d *HTTPDetector) Detect(ctx context.Context, frame *entity.Frame, timestampMs int64) (*entity.DetectionResult, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(fw, frame, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	fields := [][2]string{
		{"max_results", strconv.Itoa(d.maxResults)},
		{"conf_threshold", strconv.FormatFloat(d.scoreThreshold, 'f', 3, 64)},
		{"timestamp_ms", strconv.FormatInt(timestampMs, 10)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint+"/detect", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var parsed detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode detection response: %w", err)
	}

	result := &entity.DetectionResult{TimestampMs: timestampMs}
	for _, det := range parsed.Detections {
		if det.Confidence < d.scoreThreshold || len(det.BBox) != 4 {
			continue
		}
		x1, y1, x2, y2 := int(det.BBox[0]), int(det.BBox[1]), int(det.BBox[2]), int(det.BBox[3])
		result.Detections = append(result.Detections, entity.Detection{
			Label: det.Class,
			Score: det.Confidence,
			Box:   entity.BoundingBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1},
		})
	}
	sort.SliceStable(result.Detections, func(i, j int) bool {
		return result.Detections[i].Score > result.Detections[j].Score
	})
	if len(result.Detections) > d.maxResults {
		result.Detections = result.Detections[:d.maxResults]
	}
	return result, nil
}

// Проверка реализации интерфейса
var _ port.Inference = (*HTTPDetector)(nil)
