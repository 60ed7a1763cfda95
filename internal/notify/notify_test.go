package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/iurnickita/coursebot/internal/model"
)

type fakeSender struct {
	sent []tgbotapi.Chattable
	err  error
}

func (s *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.sent = append(s.sent, c)
	return tgbotapi.Message{}, s.err
}

func TestTelegramApprovedIncludesGroupLink(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender)

	err := n.NotifyUser(context.Background(), UserNotice{
		UserID:    7,
		Type:      model.NotificationPaymentApproved,
		ItemName:  "NN",
		GroupLink: "https://t.me/+group",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Equal(t, int64(7), msg.ChatID)
	require.True(t, strings.Contains(msg.Text, "https://t.me/+group"))
}

func TestTelegramAdminReviewHasDecisionButtons(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender)

	err := n.NotifyAdmin(context.Background(), AdminNotice{
		AdminID:  100,
		Kind:     AdminPaymentReview,
		UserID:   7,
		ItemID:   "y4_s1_nn",
		ItemName: "NN",
		Method:   model.PaymentMethodHaram,
		Receipt:  "file-id",
	})
	require.NoError(t, err)
	require.Len(t, sender.sent, 1)

	photo, ok := sender.sent[0].(tgbotapi.PhotoConfig)
	require.True(t, ok)
	require.Contains(t, photo.Caption, "HARAM")

	keyboard, ok := photo.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	row := keyboard.InlineKeyboard[0]
	require.Equal(t, "admin_approve_7_y4_s1_nn", *row[0].CallbackData)
	require.Equal(t, "admin_reject_7_y4_s1_nn", *row[1].CallbackData)
}

func TestTelegramAdminContact(t *testing.T) {
	sender := &fakeSender{}
	n := NewTelegram(sender)

	err := n.NotifyAdmin(context.Background(), AdminNotice{
		AdminID:     100,
		Kind:        AdminContact,
		UserID:      7,
		StudentName: "Student",
		Text:        "hello",
	})
	require.NoError(t, err)

	msg, ok := sender.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	require.Contains(t, msg.Text, "Student")
	require.Contains(t, msg.Text, "hello")
}

type failing struct{ err error }

func (f failing) NotifyUser(context.Context, UserNotice) error   { return f.err }
func (f failing) NotifyAdmin(context.Context, AdminNotice) error { return f.err }

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	errDown := errors.New("down")
	sender := &fakeSender{}
	m := Multi(failing{err: errDown}, nil, NewTelegram(sender))

	err := m.NotifyUser(context.Background(), UserNotice{UserID: 1, Type: model.NotificationPaymentSubmitted})
	require.ErrorIs(t, err, errDown)
	require.Len(t, sender.sent, 1)

	require.NoError(t, Multi().NotifyAdmin(context.Background(), AdminNotice{}))
	require.NoError(t, Nop().NotifyUser(context.Background(), UserNotice{}))
}
