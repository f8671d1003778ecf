package profile

import "time"

// SessionInfo describes a session at the moment it starts.
type SessionInfo struct {
	ID           string
	Strategy     Strategy
	TaskCount    int
	TaskDuration time.Duration
	StartedAt    time.Time
}

// Observer receives session notifications from a Controller.
//
// SessionStarted is called synchronously from StartSerial/StartConcurrent.
// SessionCompleted and SessionCancelled are called from the goroutine that
// detected completion, after the controller is ready for the next start.
type Observer interface {
	SessionStarted(info SessionInfo)
	SessionCompleted(result SessionResult)
	SessionCancelled(result SessionResult)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) SessionStarted(SessionInfo)     {}
func (NopObserver) SessionCompleted(SessionResult) {}
func (NopObserver) SessionCancelled(SessionResult) {}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnStarted   func(SessionInfo)
	OnCompleted func(SessionResult)
	OnCancelled func(SessionResult)
}

func (o ObserverFuncs) SessionStarted(info SessionInfo) {
	if o.OnStarted != nil {
		o.OnStarted(info)
	}
}

func (o ObserverFuncs) SessionCompleted(result SessionResult) {
	if o.OnCompleted != nil {
		o.OnCompleted(result)
	}
}

func (o ObserverFuncs) SessionCancelled(result SessionResult) {
	if o.OnCancelled != nil {
		o.OnCancelled(result)
	}
}
