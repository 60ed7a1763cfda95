package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/iurnickita/coursebot/internal/auth"
	"github.com/iurnickita/coursebot/internal/bot/config"
	"github.com/iurnickita/coursebot/internal/model"
	pricingconfig "github.com/iurnickita/coursebot/internal/pricing/config"
	"github.com/iurnickita/coursebot/internal/service"
	"github.com/iurnickita/coursebot/internal/session"
)

// API - часть *tgbotapi.BotAPI, которой пользуется бот.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

func NewAPI(cfg config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	api.Debug = cfg.Debug
	return api, nil
}

// Bot - Telegram-транспорт: переводит сообщения и нажатия кнопок в операции сервиса.
type Bot struct {
	api     API
	service service.Service
	auth    auth.Auth
	prices  pricingconfig.Config
	dialogs *dialogs
	zaplog  *zap.Logger
}

// NewBot создаёт бота. auth может быть nil - тогда /token недоступен.
func NewBot(api API, service service.Service, auth auth.Auth, prices pricingconfig.Config, zaplog *zap.Logger) *Bot {
	return &Bot{
		api:     api,
		service: service,
		auth:    auth,
		prices:  prices,
		dialogs: newDialogs(),
		zaplog:  zaplog,
	}
}

// Run обрабатывает обновления до отмены ctx. Каждое обновление - отдельная горутина.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.zaplog.Error("update handler panic", zap.Any("panic", r), zap.Int("update_id", update.UpdateID))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	// Фото - чек об оплате
	if len(msg.Photo) > 0 {
		b.handleReceipt(ctx, msg)
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if dlg := b.dialogs.get(userID); dlg.step != stepNone {
		b.handleDialog(ctx, msg, dlg, text)
		return
	}

	switch text {
	case menuHome:
		b.start(ctx, msg)
	case menuProfessional:
		b.service.SetCoordinates(userID, session.Coordinates{Category: model.CategoryProfessional})
		b.sendMessage(chatID, msgChooseCourse, coursesKeyboard(b.service.ListItems(model.CategoryProfessional)))
	case menuUniversity:
		b.service.SetCoordinates(userID, session.Coordinates{Category: model.CategoryUniversity})
		b.sendMessage(chatID, msgChooseYear, yearsKeyboard(b.service.Years()))
	case menuStatus:
		b.sendStatus(ctx, chatID, userID)
	case menuCart:
		b.sendCart(chatID, userID, 0)
	case menuContact:
		b.dialogs.set(userID, dialog{step: stepContact})
		b.sendMessage(chatID, msgContactPrompt, nil)
	case menuAdminPending, menuAdminStudents, menuAdminStats:
		if b.service.IsAdmin(userID) {
			b.handleAdminMenu(ctx, chatID, userID, text)
		}
	default:
		b.sendMessage(chatID, msgHelp, nil)
	}
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.start(ctx, msg)
	case "help":
		b.sendMessage(chatID, msgHelp, nil)
	case "cancel":
		b.dialogs.clear(userID)
		b.sendMessage(chatID, msgCancelled, mainMenu(b.service.IsAdmin(userID)))
	case "status":
		b.sendStatus(ctx, chatID, userID)
	case "cart":
		b.sendCart(chatID, userID, 0)
	case "clear":
		b.service.Clear(userID)
		b.sendMessage(chatID, msgCartCleared, nil)
	case "courses", "university":
		b.sendMessage(chatID, msgChooseYear, yearsKeyboard(b.service.Years()))
	case "token":
		b.sendToken(chatID, userID)
	default:
		b.sendMessage(chatID, msgUnknownCommand, nil)
	}
}

func (b *Bot) start(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	b.dialogs.clear(userID)

	if b.service.IsAdmin(userID) {
		b.sendMessage(chatID, msgWelcomeAdmin, mainMenu(true))
		return
	}

	user, err := b.service.Touch(ctx, userID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if user.IsRegistered() {
		b.sendMessage(chatID, fmt.Sprintf(msgWelcomeBack, user.FullName), mainMenu(false))
		return
	}
	b.dialogs.set(userID, dialog{step: stepName})
	b.sendMessage(chatID, msgAskName, tgbotapi.NewRemoveKeyboard(true))
}

// handleDialog - шаги регистрации и сообщение для преподавателя.
func (b *Bot) handleDialog(ctx context.Context, msg *tgbotapi.Message, dlg dialog, text string) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if text == cancelText {
		b.dialogs.clear(userID)
		b.sendMessage(chatID, msgCancelled, mainMenu(false))
		return
	}

	switch dlg.step {
	case stepName:
		dlg.name = text
		dlg.step = stepPhone
		b.dialogs.set(userID, dlg)
		b.sendMessage(chatID, msgAskPhone, nil)

	case stepPhone:
		phone, err := service.ValidatePhone(text)
		if err != nil {
			b.sendMessage(chatID, msgBadPhone, nil)
			return
		}
		dlg.phone = phone
		dlg.step = stepEmail
		b.dialogs.set(userID, dlg)
		b.sendMessage(chatID, msgAskEmail, nil)

	case stepEmail:
		user, err := b.service.Register(ctx, userID, dlg.name, dlg.phone, text)
		if errors.Is(err, service.ErrInvalid) {
			b.sendMessage(chatID, msgBadEmail, nil)
			return
		}
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.dialogs.clear(userID)
		b.sendMessage(chatID, fmt.Sprintf(msgRegistered, user.FullName), mainMenu(false))

	case stepContact:
		err := b.service.ContactAdmin(ctx, userID, displayName(msg.From), text)
		if err != nil {
			b.zaplog.Warn("contact message failed", zap.Int64("user_id", userID), zap.Error(err))
			b.sendMessage(chatID, msgContactFailed, nil)
			return
		}
		b.dialogs.clear(userID)
		b.sendMessage(chatID, msgContactSent, nil)
	}
}

// handleReceipt принимает фото чека для ожидающей оплаты.
// Подтверждение студенту отправляет уведомитель.
func (b *Bot) handleReceipt(ctx context.Context, msg *tgbotapi.Message) {
	// файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	_, err := b.service.SubmitPayment(ctx, msg.From.ID, photo.FileID)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrNoPendingPayment):
		b.sendMessage(msg.Chat.ID, msgNoPending, nil)
	default:
		b.replyError(msg.Chat.ID, err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if q.Message == nil || q.From == nil {
		b.answer(q.ID, "")
		return
	}
	userID := q.From.ID
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID

	cb, err := ParseCallback(q.Data)
	if err != nil {
		b.zaplog.Debug("unknown callback", zap.String("data", q.Data))
		b.answer(q.ID, "")
		return
	}

	switch cb.Kind {
	case CallbackApprove, CallbackReject:
		b.handleDecision(ctx, q, cb)
		return
	case CallbackToggle:
		b.handleToggle(q, cb)
		return
	}
	b.answer(q.ID, "")

	switch cb.Kind {
	case CallbackBack:
		s := b.service.Session(userID)
		if s.Coords.Category == model.CategoryUniversity {
			kb := yearsKeyboard(b.service.Years())
			b.editMessage(chatID, messageID, msgChooseYear, &kb)
			return
		}
		kb := coursesKeyboard(b.service.ListItems(model.CategoryProfessional))
		b.editMessage(chatID, messageID, msgChooseCourse, &kb)

	case CallbackYear:
		b.service.SetCoordinates(userID, session.Coordinates{Category: model.CategoryUniversity, Year: cb.Year})
		kb := semestersKeyboard(cb.Year)
		b.editMessage(chatID, messageID, fmt.Sprintf(msgChooseSemester, yearName(cb.Year)), &kb)

	case CallbackSemester:
		b.service.SetCoordinates(userID, session.Coordinates{Category: model.CategoryUniversity, Year: cb.Year, Semester: cb.Semester})
		b.editMaterials(chatID, messageID, userID, msgChooseMaterial)

	case CallbackCourse, CallbackDetail:
		view, err := b.service.ItemView(ctx, userID, cb.ItemID)
		if err != nil {
			b.editError(chatID, messageID, err)
			return
		}
		text := itemText(view, b.prices.SinglePrice, b.prices.MultiPrice)
		if view.Status == model.ApprovalStatusApproved {
			b.editMessage(chatID, messageID, text, nil)
			return
		}
		keyboard := courseKeyboard(view.Item.ID)
		if view.Item.Category == model.CategoryUniversity {
			keyboard = materialKeyboard(view.Item)
		}
		b.editMessage(chatID, messageID, text, &keyboard)

	case CallbackCart:
		b.sendCart(chatID, userID, messageID)

	case CallbackClear:
		b.service.Clear(userID)
		if b.service.Session(userID).Coords.Semester != 0 {
			b.editMaterials(chatID, messageID, userID, msgCartCleared)
			return
		}
		b.editMessage(chatID, messageID, msgCartCleared, nil)

	case CallbackCartPay:
		instr, err := b.service.BeginPayment(userID, cb.Method)
		if err != nil {
			b.editError(chatID, messageID, err)
			return
		}
		b.editMessage(chatID, messageID, paymentText(instr), nil)

	case CallbackDirectPay:
		instr, err := b.service.BeginDirect(userID, cb.ItemID, cb.Method)
		if err != nil {
			b.editError(chatID, messageID, err)
			return
		}
		b.editMessage(chatID, messageID, paymentText(instr), nil)

	case CallbackContact:
		b.dialogs.set(userID, dialog{step: stepContact})
		b.editMessage(chatID, messageID, msgContactPrompt, nil)
	}
}

func (b *Bot) handleToggle(q *tgbotapi.CallbackQuery, cb Callback) {
	userID := q.From.ID

	res, err := b.service.Toggle(userID, cb.ItemID)
	if err != nil {
		b.answer(q.ID, msgNotFound)
		return
	}

	notice := msgRemoved
	if res.Added {
		notice = msgAdded
		// скидка включается на второй позиции
		if res.Cart.Summary.Discounted && res.Cart.Summary.UniversityCount == 2 {
			notice = msgAddedDiscount
		}
	}
	b.answer(q.ID, notice)

	if b.service.Session(userID).Coords.Semester != 0 {
		b.editMaterials(q.Message.Chat.ID, q.Message.MessageID, userID,
			fmt.Sprintf(msgMaterialsCount, len(res.Cart.Items)))
		return
	}
	b.sendCart(q.Message.Chat.ID, userID, q.Message.MessageID)
}

// handleDecision - кнопки одобрения и отклонения под уведомлением администратора.
func (b *Bot) handleDecision(ctx context.Context, q *tgbotapi.CallbackQuery, cb Callback) {
	adminID := q.From.ID
	chatID := q.Message.Chat.ID

	var err error
	result := msgDecisionApproved
	if cb.Kind == CallbackApprove {
		_, err = b.service.Approve(ctx, adminID, cb.UserID, cb.ItemID)
	} else {
		result = msgDecisionRejected
		_, err = b.service.Reject(ctx, adminID, cb.UserID, cb.ItemID)
	}

	switch {
	case err == nil:
	case errors.Is(err, service.ErrStaleTransition):
		result = msgDecisionStale
	case errors.Is(err, service.ErrForbidden):
		b.answer(q.ID, "")
		return
	default:
		b.answer(q.ID, "")
		b.replyError(chatID, err)
		return
	}

	b.answer(q.ID, result)
	// кнопки больше не нужны
	b.request(tgbotapi.NewEditMessageReplyMarkup(chatID, q.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}))
	b.sendMessage(chatID, fmt.Sprintf("%s: %d / %s", result, cb.UserID, cb.ItemID), nil)
}

func (b *Bot) handleAdminMenu(ctx context.Context, chatID, adminID int64, text string) {
	switch text {
	case menuAdminPending:
		pending, err := b.service.ListPending(ctx, adminID)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		if len(pending) == 0 {
			b.sendMessage(chatID, msgNoPendingAdmin, nil)
			return
		}
		for _, p := range pending {
			name := p.Enrollment.ItemID
			if view, err := b.service.ItemView(ctx, p.UserID, p.Enrollment.ItemID); err == nil {
				name = view.Item.Name
			}
			keyboard := reviewKeyboard(p.UserID, p.Enrollment.ItemID)
			b.sendMessage(chatID, pendingText(p, name), keyboard)
		}

	case menuAdminStudents:
		users, err := b.service.Students(ctx, adminID)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, studentsText(users), nil)

	case menuAdminStats:
		stats, err := b.service.Stats(ctx, adminID)
		if err != nil {
			b.replyError(chatID, err)
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgStats, stats.Users, stats.Pending, stats.Approved, stats.Rejected), nil)
	}
}

func (b *Bot) sendStatus(ctx context.Context, chatID, userID int64) {
	entries, err := b.service.QueryStatus(ctx, userID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.sendMessage(chatID, statusText(entries), nil)
}

// sendCart показывает корзину: новым сообщением или правкой messageID.
func (b *Bot) sendCart(chatID, userID int64, messageID int) {
	view, err := b.service.Cart(userID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	text := msgCartEmpty
	var keyboard *tgbotapi.InlineKeyboardMarkup
	if len(view.Items) > 0 {
		coords := b.service.Session(userID).Coords
		year, semester := coords.Year, coords.Semester
		if year == 0 || semester == 0 {
			year, semester = view.Items[0].Year, view.Items[0].Semester
		}
		text = cartText(view)
		kb := cartKeyboard(year, semester)
		keyboard = &kb
	}

	if messageID == 0 {
		if keyboard != nil {
			b.sendMessage(chatID, text, *keyboard)
			return
		}
		b.sendMessage(chatID, text, nil)
		return
	}
	b.editMessage(chatID, messageID, text, keyboard)
}

func (b *Bot) editMaterials(chatID int64, messageID int, userID int64, text string) {
	s := b.service.Session(userID)
	items := b.service.ListSemester(s.Coords.Year, s.Coords.Semester)
	if len(items) == 0 {
		b.editMessage(chatID, messageID, msgNoMaterials, nil)
		return
	}
	keyboard := materialsKeyboard(items, s.Cart())
	b.editMessage(chatID, messageID, text, &keyboard)
}

func (b *Bot) sendToken(chatID, userID int64) {
	if !b.service.IsAdmin(userID) {
		b.sendMessage(chatID, msgUnknownCommand, nil)
		return
	}
	if b.auth == nil {
		b.sendMessage(chatID, msgTokenDisabled, nil)
		return
	}
	token, exp, err := b.auth.IssueToken(userID)
	if err != nil {
		b.zaplog.Error("issue admin token", zap.Error(err))
		b.sendMessage(chatID, msgRetryLater, nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(msgToken, exp.Format("2006-01-02 15:04 MST"), token), nil)
}

func errorText(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return msgNotFound
	case errors.Is(err, service.ErrEmptySelection):
		return msgCartEmpty
	case errors.Is(err, service.ErrNoPendingPayment):
		return msgNoPending
	default:
		return msgRetryLater
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	if !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrEmptySelection) {
		b.zaplog.Warn("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.sendMessage(chatID, errorText(err), nil)
}

func (b *Bot) editError(chatID int64, messageID int, err error) {
	if errors.Is(err, service.ErrUnavailable) {
		b.zaplog.Warn("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	b.editMessage(chatID, messageID, errorText(err), nil)
}

func displayName(u *tgbotapi.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return name
}

func (b *Bot) answer(callbackID, text string) {
	b.request(tgbotapi.NewCallback(callbackID, text))
}

func (b *Bot) request(c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.zaplog.Debug("telegram request failed", zap.Error(err))
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string, markup any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	if _, err := b.api.Send(msg); err != nil {
		b.zaplog.Warn("send message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) editMessage(chatID int64, messageID int, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ReplyMarkup = markup
	if _, err := b.api.Send(edit); err != nil {
		b.zaplog.Debug("edit message failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
