package notify

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iurnickita/coursebot/internal/model"
)

const (
	msgSubmitted = "✅ تم استلام إثبات الدفع\n\nسيتم مراجعة طلبك قريباً وسيتم إشعارك بحالة الموافقة."
	msgApproved  = "🎉 تمت الموافقة على دفعتك!\n\n📚 %s"
	msgRejected  = "❌ تم رفض إثبات الدفع\n\n📚 %s\n\nيمكنك إرسال إثبات دفع جديد من صفحة المادة."
	msgGroupLink = "\n\n🔗 رابط المجموعة:\n%s"

	msgAdminReview = "طلب جديد لموافقة الدفع\n" +
		"الطالب: %s\n" +
		"الدورة/المادة: %s\n" +
		"الطريقة: %s"
	msgAdminContact = "📧 رسالة من الطالب\n\n" +
		"👤 الاسم: %s\n" +
		"🆔 المعرف: %d\n\n" +
		"💬 الرسالة:\n%s"

	btnApprove = "موافقة"
	btnReject  = "رفض"
)

// Sender - часть *tgbotapi.BotAPI, нужная для отправки.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type telegram struct {
	sender Sender
}

func NewTelegram(sender Sender) Notifier {
	return &telegram{sender: sender}
}

// ReviewCallbacks - данные кнопок одобрения и отклонения записи.
func ReviewCallbacks(userID int64, itemID string) (approve, reject string) {
	uid := strconv.FormatInt(userID, 10)
	return "admin_approve_" + uid + "_" + itemID, "admin_reject_" + uid + "_" + itemID
}

func (t *telegram) NotifyUser(_ context.Context, notice UserNotice) error {
	var text string
	switch notice.Type {
	case model.NotificationPaymentSubmitted:
		text = msgSubmitted
	case model.NotificationPaymentApproved:
		text = fmt.Sprintf(msgApproved, notice.ItemName)
		if notice.GroupLink != "" {
			text += fmt.Sprintf(msgGroupLink, notice.GroupLink)
		}
	case model.NotificationPaymentRejected:
		text = fmt.Sprintf(msgRejected, notice.ItemName)
	default:
		text = notice.Message
	}
	if text == "" {
		return nil
	}

	_, err := t.sender.Send(tgbotapi.NewMessage(notice.UserID, text))
	return err
}

func (t *telegram) NotifyAdmin(_ context.Context, notice AdminNotice) error {
	if notice.Kind == AdminContact {
		text := fmt.Sprintf(msgAdminContact, studentName(notice), notice.UserID, notice.Text)
		_, err := t.sender.Send(tgbotapi.NewMessage(notice.AdminID, text))
		return err
	}

	caption := fmt.Sprintf(msgAdminReview, studentName(notice), notice.ItemName, notice.Method.Label())
	approve, reject := ReviewCallbacks(notice.UserID, notice.ItemID)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnApprove, approve),
		tgbotapi.NewInlineKeyboardButtonData(btnReject, reject),
	))

	// Чек - file_id фотографии в Telegram
	if notice.Receipt != "" {
		photo := tgbotapi.NewPhoto(notice.AdminID, tgbotapi.FileID(notice.Receipt))
		photo.Caption = caption
		photo.ReplyMarkup = keyboard
		_, err := t.sender.Send(photo)
		return err
	}

	msg := tgbotapi.NewMessage(notice.AdminID, caption)
	msg.ReplyMarkup = keyboard
	_, err := t.sender.Send(msg)
	return err
}

func studentName(notice AdminNotice) string {
	if notice.StudentName != "" {
		return notice.StudentName
	}
	return strconv.FormatInt(notice.UserID, 10)
}
