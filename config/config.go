package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cell-guard/internal/domain/entity"
)

type Config struct {
	LogLevel string
	HTTPAddr string

	FaceStreamURI      string
	DetectionStreamURI string
	CaptureWidth       int
	CaptureHeight      int
	ReconnectInterval  time.Duration
	RetryInterval      time.Duration
	TickInterval       time.Duration
	JPEGQuality        int

	DetectorBackend        string // http или motion, motion только с ABSENCE_ACTION=none
	DetectorURL            string
	DetectorMaxResults     int
	DetectorScoreThreshold float64
	DetectorQueueSize      int
	DetectorTimeout        time.Duration

	FaceURL                 string
	FaceSimilarityThreshold float64
	AuthorizedIdentities    []string
	FaceTimeout             time.Duration

	AuthDisplayDelay time.Duration
	AbsenceThreshold time.Duration
	AbsenceAction    entity.AbsenceAction

	ActuatorAddress string // пусто, если станок не подключён
	ActuatorTimeout time.Duration

	TelegramToken    string
	TelegramAdminIDs []int64
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		LogLevel: str("LOG_LEVEL", "info"),
		HTTPAddr: str("HTTP_ADDR", ":8080"),

		FaceStreamURI:      str("FACE_STREAM_URI", "0"),
		DetectionStreamURI: str("DETECTION_STREAM_URI", "1"),
		CaptureWidth:       p.getInt("CAPTURE_WIDTH", 640),
		CaptureHeight:      p.getInt("CAPTURE_HEIGHT", 480),
		ReconnectInterval:  p.getDuration("STREAM_RECONNECT_INTERVAL", 60*time.Second),
		RetryInterval:      p.getDuration("STREAM_RETRY_INTERVAL", 2*time.Second),
		TickInterval:       p.getDuration("TICK_INTERVAL", 30*time.Millisecond),
		JPEGQuality:        p.getInt("JPEG_QUALITY", 75),

		DetectorBackend:        str("DETECTOR_BACKEND", "http"),
		DetectorURL:            str("DETECTOR_URL", "http://127.0.0.1:8000"),
		DetectorMaxResults:     p.getInt("DETECTOR_MAX_RESULTS", 5),
		DetectorScoreThreshold: p.getFloat("DETECTOR_SCORE_THRESHOLD", 0.25),
		DetectorQueueSize:      p.getInt("DETECTOR_QUEUE_SIZE", 4),
		DetectorTimeout:        p.getDuration("DETECTOR_TIMEOUT", 5*time.Second),

		FaceURL:                 str("FACE_URL", "http://127.0.0.1:8001"),
		FaceSimilarityThreshold: p.getFloat("FACE_SIMILARITY_THRESHOLD", 0.5),
		AuthorizedIdentities:    list("AUTHORIZED_IDENTITIES"),
		FaceTimeout:             p.getDuration("FACE_TIMEOUT", 2*time.Second),

		AuthDisplayDelay: p.getDuration("AUTH_DISPLAY_DELAY", 2*time.Second),
		AbsenceThreshold: p.getDuration("ABSENCE_THRESHOLD", 5*time.Second),
		AbsenceAction:    entity.AbsenceAction(str("ABSENCE_ACTION", string(entity.AbsenceNone))),

		ActuatorAddress: os.Getenv("ACTUATOR_ADDRESS"),
		ActuatorTimeout: p.getDuration("ACTUATOR_TIMEOUT", 2*time.Second),

		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		TelegramAdminIDs: p.getIDs("TELEGRAM_ADMIN_IDS"),
	}

	if p.err != nil {
		return nil, p.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	if !c.AbsenceAction.Valid() {
		return fmt.Errorf("ABSENCE_ACTION: unknown value %q", c.AbsenceAction)
	}
	if c.DetectorBackend != "http" && c.DetectorBackend != "motion" {
		return fmt.Errorf("DETECTOR_BACKEND: unknown value %q", c.DetectorBackend)
	}
	// движение не отличает человека от фона: неподвижный оператор считается отсутствующим
	if c.DetectorBackend == "motion" && c.AbsenceAction != entity.AbsenceNone && c.AbsenceAction != "" {
		return fmt.Errorf("ABSENCE_ACTION %q requires a person detector, DETECTOR_BACKEND=motion supports only %q",
			c.AbsenceAction, entity.AbsenceNone)
	}
	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		return fmt.Errorf("capture size must be positive, got %dx%d", c.CaptureWidth, c.CaptureHeight)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.DetectorScoreThreshold < 0 || c.DetectorScoreThreshold > 1 {
		return fmt.Errorf("DETECTOR_SCORE_THRESHOLD must be within [0, 1], got %v", c.DetectorScoreThreshold)
	}
	return nil
}

// parser запоминает первую ошибку разбора
type parser struct {
	err error
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%s: %w", key, err)
	}
}

func (p *parser) getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) getFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) getIDs(key string) []int64 {
	var out []int64
	for _, item := range list(key) {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			p.fail(key, err)
			return nil
		}
		out = append(out, id)
	}
	return out
}

func str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
