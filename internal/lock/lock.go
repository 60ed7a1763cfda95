package lock

import (
	"context"
	"strconv"
	"sync"

	"github.com/iurnickita/coursebot/internal/lock/config"
)

// Locker выдаёт эксклюзивную секцию по ключу (обычно по пользователю).
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// UserKey - ключ блокировки документа пользователя.
func UserKey(telegramID int64) string {
	return "user:" + strconv.FormatInt(telegramID, 10)
}

func NewLocker(cfg config.Config) (Locker, error) {
	if cfg.RedisAddr == "" {
		return NewLocal(), nil
	}
	return NewRedis(cfg)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// local - блокировки внутри процесса. Записи удаляются, когда их никто не держит.
type local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewLocal() Locker {
	return &local{entries: make(map[string]*entry)}
}

func (l *local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

func (l *local) release(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}
