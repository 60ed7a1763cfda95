package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iurnickita/coursebot/internal/notify/config"
)

// Event - сообщение в очереди событий записи.
type Event struct {
	Event string       `json:"event"`
	User  *UserNotice  `json:"user,omitempty"`
	Admin *AdminNotice `json:"admin,omitempty"`
}

const (
	EventUserNotice  = "user_notice"
	EventAdminNotice = "admin_notice"
)

// AMQP публикует уведомления в durable-очередь RabbitMQ
// для внешних потребителей (почта, CRM, аналитика).
// После обрыва соединения переподключается при следующей публикации.
type AMQP struct {
	mu     sync.Mutex
	url    string
	queue  string
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed chan *amqp.Error
}

func NewAMQP(cfg config.Config) (*AMQP, error) {
	a := &AMQP{url: cfg.AMQPURL, queue: cfg.AMQPQueue}
	if err := a.connect(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AMQP) connect() error {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}

	// durable: сообщения переживают перезапуск брокера
	if _, err := ch.QueueDeclare(a.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	a.conn = conn
	a.ch = ch
	// канал закрывается и при обрыве соединения
	a.closed = ch.NotifyClose(make(chan *amqp.Error, 1))
	return nil
}

// channel возвращает живой канал, при необходимости переподключаясь. Вызывается под mu.
func (a *AMQP) channel() (*amqp.Channel, error) {
	if a.ch != nil {
		select {
		case <-a.closed:
			a.reset()
		default:
		}
	}
	if a.ch == nil {
		if err := a.connect(); err != nil {
			return nil, err
		}
	}
	return a.ch, nil
}

func (a *AMQP) reset() {
	if a.conn != nil {
		a.conn.Close()
	}
	a.conn, a.ch, a.closed = nil, nil, nil
}

func (a *AMQP) NotifyUser(ctx context.Context, notice UserNotice) error {
	return a.publish(ctx, Event{Event: EventUserNotice, User: &notice})
}

func (a *AMQP) NotifyAdmin(ctx context.Context, notice AdminNotice) error {
	return a.publish(ctx, Event{Event: EventAdminNotice, Admin: &notice})
}

func (a *AMQP) publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	ch, err := a.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", a.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if errors.Is(err, amqp.ErrClosed) {
		// обрыв мог случиться до уведомления в closed
		a.reset()
	}
	return err
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn, a.ch, a.closed = nil, nil, nil
	return err
}
