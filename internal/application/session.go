package app

import (
	"fmt"
	"math"
	"time"

	"cell-guard/internal/domain/entity"
)

// SessionPolicy настройки переходов сессии
type SessionPolicy struct {
	DisplayDelay     time.Duration        // пауза между авторизацией и мониторингом
	AbsenceThreshold time.Duration        // сколько человек может отсутствовать
	AbsenceAction    entity.AbsenceAction // что делать после порога
}

// DefaultSessionPolicy значения по умолчанию: 2 с на показ, 5 с отсутствия, реакция выключена.
func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		DisplayDelay:     2 * time.Second,
		AbsenceThreshold: 5 * time.Second,
		AbsenceAction:    entity.AbsenceNone,
	}
}

// EventKind вид события сессии
type EventKind int

const (
	EventTick        EventKind = iota // граница тика, проверка таймеров
	EventAuthResult                   // результат классификатора лиц
	EventDetection                    // результат детектора
	EventReauthorize                  // явный возврат к авторизации
	EventStopResult                   // итог аварийной остановки
)

// Event вход функции перехода
type Event struct {
	Kind          EventKind
	Now           time.Time
	Authorized    bool
	Identity      string
	SessionID     string
	PersonPresent bool
	Err           error
}

// EffectKind вид побочного эффекта
type EffectKind int

const (
	EffectStopAuthenticator     EffectKind = iota // выключить ветку распознавания лиц
	EffectEnterMonitoring                         // включить ветку детекции
	EffectStopMachine                             // аварийная остановка станка
	EffectReturnToAuthorization                   // выключить детекцию, снова ждать лицо
	EffectNotify                                  // уведомить оператора
	EffectStatus                                  // обновить строку состояния
)

// Effect побочный эффект перехода, исполняется циклом кадров
type Effect struct {
	Kind EffectKind
	Text string
}

func status(text string) Effect { return Effect{Kind: EffectStatus, Text: text} }
func notify(text string) Effect { return Effect{Kind: EffectNotify, Text: text} }

// Transition чистая функция перехода сессии.
// Ошибки адаптеров сюда не приходят и фазу не меняют.
func Transition(s entity.SessionState, ev Event, p SessionPolicy) (entity.SessionState, []Effect) {
	switch ev.Kind {
	case EventTick:
		return onTick(s, ev)
	case EventAuthResult:
		return onAuthResult(s, ev, p)
	case EventDetection:
		return onDetection(s, ev, p)
	case EventReauthorize:
		return reauthorize(s, "Reauthorization requested")
	case EventStopResult:
		return onStopResult(s, ev)
	}
	return s, nil
}

func onTick(s entity.SessionState, ev Event) (entity.SessionState, []Effect) {
	if !s.RedirectPending() || ev.Now.Before(s.RedirectAt) {
		return s, nil
	}
	return enterMonitoring(s, ev.Now)
}

func enterMonitoring(s entity.SessionState, now time.Time) (entity.SessionState, []Effect) {
	s.Phase = entity.PhaseMonitoring
	s.RedirectAt = time.Time{}
	s.LastPersonSeen = now
	s.AbsenceHandled = false
	return s, []Effect{
		{Kind: EffectEnterMonitoring},
		status(fmt.Sprintf("Welcome %s", s.Identity)),
	}
}

func onAuthResult(s entity.SessionState, ev Event, p SessionPolicy) (entity.SessionState, []Effect) {
	if s.Phase != entity.PhaseAwaitingAuthorization || s.RedirectPending() {
		return s, nil
	}
	if !ev.Authorized {
		return s, []Effect{status("Waiting for authorization...")}
	}

	s.Identity = ev.Identity
	if s.Identity == "" {
		s.Identity = entity.UnknownIdentity
	}
	s.SessionID = ev.SessionID
	s.AuthorizedAt = ev.Now
	s.RedirectAt = ev.Now.Add(p.DisplayDelay)
	effects := []Effect{
		{Kind: EffectStopAuthenticator},
		status(fmt.Sprintf("Authorization done for %s.... Redirecting...", s.Identity)),
		notify(fmt.Sprintf("✅ Допуск получен: %s", s.Identity)),
	}

	if p.DisplayDelay <= 0 {
		var more []Effect
		s, more = enterMonitoring(s, ev.Now)
		effects = append(effects, more...)
	}
	return s, effects
}

func onDetection(s entity.SessionState, ev Event, p SessionPolicy) (entity.SessionState, []Effect) {
	if s.Phase != entity.PhaseMonitoring {
		return s, nil
	}
	if ev.PersonPresent {
		s.LastPersonSeen = ev.Now
		s.AbsenceHandled = false
		return s, []Effect{status("Status: Person detected")}
	}

	if p.AbsenceAction == entity.AbsenceNone || p.AbsenceAction == "" {
		return s, []Effect{status("Status: No Person detected")}
	}
	if s.AbsenceHandled {
		return s, nil
	}

	absent := ev.Now.Sub(s.LastPersonSeen)
	if absent < p.AbsenceThreshold {
		left := int(math.Ceil((p.AbsenceThreshold - absent).Seconds()))
		verb := "stopping"
		if p.AbsenceAction.Reauthorizes() {
			verb = "redirecting"
		}
		return s, []Effect{status(fmt.Sprintf("Status: No person detected, %s in %ds...", verb, left))}
	}

	s.AbsenceHandled = true
	var effects []Effect
	if p.AbsenceAction.Reauthorizes() {
		s, effects = reauthorize(s, "Status: Redirecting to face page...")
	} else {
		effects = append(effects, status("Status: No person detected, machine stopped"))
	}
	// статус отказа остановки перекрывает статус отсутствия
	if p.AbsenceAction.Stops() {
		effects = append(effects, Effect{Kind: EffectStopMachine})
	}
	effects = append(effects, notify(fmt.Sprintf("⚠️ В зоне никого нет %s", absent.Round(time.Second))))
	return s, effects
}

func reauthorize(s entity.SessionState, text string) (entity.SessionState, []Effect) {
	next := entity.NewSessionState()
	next.StopFailed = s.StopFailed
	return next, []Effect{
		{Kind: EffectReturnToAuthorization},
		status(text),
	}
}

func onStopResult(s entity.SessionState, ev Event) (entity.SessionState, []Effect) {
	if ev.Err == nil {
		s.StopFailed = false
		return s, nil
	}
	s.StopFailed = true
	return s, []Effect{
		status("SAFETY STOP FAILED"),
		notify(fmt.Sprintf("🛑 Аварийная остановка не выполнена: %v", ev.Err)),
	}
}
