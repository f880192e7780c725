package entity

import "time"

// Phase фаза сессии
type Phase string

const (
	PhaseAwaitingAuthorization Phase = "awaiting_authorization" // ждём лицо с допуском
	PhaseMonitoring            Phase = "monitoring"             // следим за рабочей зоной
)

// SessionState состояние сессии. Меняется только функцией перехода на границе тика.
type SessionState struct {
	Phase          Phase
	SessionID      string
	Identity       string
	AuthorizedAt   time.Time
	RedirectAt     time.Time // момент переключения в мониторинг, пусто если не ждём
	LastPersonSeen time.Time
	AbsenceHandled bool // реакция на отсутствие уже сработала в этом эпизоде
	StopFailed     bool // последняя аварийная остановка не прошла
}

// NewSessionState возвращает начальное состояние.
func NewSessionState() SessionState {
	return SessionState{
		Phase:    PhaseAwaitingAuthorization,
		Identity: UnknownIdentity,
	}
}

// RedirectPending сообщает, что авторизация прошла и ждём задержку показа.
func (s SessionState) RedirectPending() bool {
	return s.Phase == PhaseAwaitingAuthorization && !s.RedirectAt.IsZero()
}

// AbsenceAction реакция на длительное отсутствие человека
type AbsenceAction string

const (
	AbsenceNone               AbsenceAction = "none"
	AbsenceStop               AbsenceAction = "stop"
	AbsenceReauthorize        AbsenceAction = "reauthorize"
	AbsenceStopAndReauthorize AbsenceAction = "stop_and_reauthorize"
)

// Stops сообщает, что реакция включает остановку станка.
func (a AbsenceAction) Stops() bool {
	return a == AbsenceStop || a == AbsenceStopAndReauthorize
}

// Reauthorizes сообщает, что реакция возвращает к авторизации.
func (a AbsenceAction) Reauthorizes() bool {
	return a == AbsenceReauthorize || a == AbsenceStopAndReauthorize
}

// Valid проверяет значение.
func (a AbsenceAction) Valid() bool {
	switch a {
	case AbsenceNone, AbsenceStop, AbsenceReauthorize, AbsenceStopAndReauthorize:
		return true
	}
	return false
}
