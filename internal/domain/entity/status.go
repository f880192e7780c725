package entity

import "time"

// View поверхность отображения
type View string

const (
	ViewAuthorization View = "authorization" // поток камеры лица
	ViewMonitoring    View = "monitoring"    // поток камеры рабочей зоны
)

// Status строка состояния для оператора
type Status struct {
	Connected      bool      `json:"connected"`
	PersonDetected bool      `json:"person_detected"`
	MachineRunning bool      `json:"machine_running"`
	StopFailed     bool      `json:"stop_failed"`
	Phase          Phase     `json:"phase"`
	SessionID      string    `json:"session_id,omitempty"`
	Identity       string    `json:"identity"`
	FPS            float64   `json:"fps"`
	Message        string    `json:"message"`
	LastError      string    `json:"last_error,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
