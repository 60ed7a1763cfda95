package bot

import "sync"

type dialogStep int

const (
	stepNone dialogStep = iota
	stepName
	stepPhone
	stepEmail
	stepContact
)

// dialog - ожидаемый от пользователя текстовый ответ.
type dialog struct {
	step  dialogStep
	name  string
	phone string
}

type dialogs struct {
	mu sync.Mutex
	m  map[int64]dialog
}

func newDialogs() *dialogs {
	return &dialogs{m: make(map[int64]dialog)}
}

func (d *dialogs) get(userID int64) dialog {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.m[userID]
}

func (d *dialogs) set(userID int64, dlg dialog) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if dlg.step == stepNone {
		delete(d.m, userID)
		return
	}
	d.m[userID] = dlg
}

func (d *dialogs) clear(userID int64) {
	d.set(userID, dialog{})
}
