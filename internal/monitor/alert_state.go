// internal/monitor/alert_state.go
package monitor

import "time"

// AlertState - время последнего отправленного оповещения о ливне.
// Живет только в памяти процесса, после перезапуска сбрасывается.
type AlertState struct {
	LastSent time.Time
}

// DecideRainAlert решает, отправлять ли оповещение.
//
// Без подходящего дождя состояние сбрасывается, и следующее событие
// оповещается сразу. Иначе оповещение уходит, если предыдущего не было
// или оно старше cooldown. next нужно применять только после успешной отправки.
func DecideRainAlert(state AlertState, now time.Time, qualifying bool, cooldown time.Duration) (bool, AlertState) {
	if !qualifying {
		return false, AlertState{}
	}
	if state.LastSent.IsZero() || now.Sub(state.LastSent) > cooldown {
		return true, AlertState{LastSent: now}
	}
	return false, state
}
