package port

// Actuator составные команды контроллера станка.
// Не потокобезопасен: вызывается только из цикла кадров.
type Actuator interface {
	Connected() bool
	Start() error
	Stop() error
	Fast() error
	Slow() error
	SetSpeed(speed int) error
}
