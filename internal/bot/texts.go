package bot

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/notify"
	"github.com/iurnickita/coursebot/internal/pricing"
	"github.com/iurnickita/coursebot/internal/service"
)

// Кнопки главного меню
const (
	menuProfessional = "📚 الدورات الاحترافية"
	menuUniversity   = "🎓 المواد الجامعية"
	menuContact      = "💬 تواصل مع المعلمة"
	menuStatus       = "📋 حالة الدفع"
	menuCart         = "🧺 السلة"
	menuHome         = "🏠 الرئيسية"

	menuAdminPending  = "✅ الموافقة على الدفع"
	menuAdminStudents = "👥 قائمة الطلاب"
	menuAdminStats    = "📊 الإحصائيات"

	cancelText = "❌ إلغاء"
)

const (
	msgWelcomeAdmin = "🔑 مرحباً!\n\n🎯 لوحة التحكم الإدارية\nاختر من القائمة أدناه لإدارة الدورات والطلاب:"
	msgWelcomeBack  = "👋 مرحباً %s!\n\n🎓 منصة التعليم الإلكترونية\n\nاختر من القائمة أدناه:"
	msgAskName      = "👤 أهلاً بك! ما هو اسمك الكامل؟"
	msgAskPhone     = "رقم هاتفك؟\nمثال: +963999999999"
	msgBadPhone     = "❌ يرجى إدخال رقم هاتف صحيح\nمثال: +963999999999"
	msgAskEmail     = "بريدك الإلكتروني؟\nمثال: student@example.com"
	msgBadEmail     = "❌ يرجى إدخال بريد إلكتروني صحيح\nمثال: student@example.com"
	msgRegistered   = "✅ تم التسجيل بنجاح!\n\n👋 أهلاً بك %s!\n\n🎓 منصة التعليم الإلكترونية\nاختر من القائمة أدناه لبدء رحلتك التعليمية:"
	msgCancelled    = "تم الإلغاء."

	msgHelp = "ℹ️ الأوامر:\n" +
		"/start - القائمة الرئيسية\n" +
		"/cart - السلة\n" +
		"/clear - إفراغ السلة\n" +
		"/status - حالة الدفع\n" +
		"/cancel - إلغاء العملية الحالية"
	msgUnknownCommand = "❓ أمر غير معروف. أرسل /help للمساعدة."

	msgChooseCourse   = "📚 اختر الدورة:"
	msgChooseYear     = "🎓 المواد الجامعية\n\nاختر السنة:"
	msgChooseSemester = "📖 %s\n\nاختر الفصل:"
	msgChooseMaterial = "اختر المواد (يمكنك اختيار أكثر من مادة):"
	msgMaterialsCount = "اختر المواد (محدد: %d):"
	msgNoMaterials    = "لا توجد مواد لهذا الفصل بعد."

	msgAdded         = "✅ تم إضافة المادة للسلة"
	msgAddedDiscount = "✅ تم إضافة المادة! 🎁 تم تطبيق خصم المواد المتعددة"
	msgRemoved       = "❌ تم إزالة المادة من السلة"
	msgCartEmpty     = "❌ سلتك فارغة. اختر مواداً أولاً."
	msgCartCleared   = "تم إفراغ السلة."

	msgPayment       = "طريقة الدفع: %s\nأرسل الآن صورة إثبات الدفع (screenshot/صورة للوصل).\nرقم التحويل: %s"
	msgNoPending     = "لا يوجد دفع بانتظار الإيصال.\nاختر المادة وطريقة الدفع أولاً ثم أرسل صورة الإيصال."
	msgNotFound      = "❌ لم يتم العثور على الدورة."
	msgRetryLater    = "⚠️ حدث خطأ مؤقت، يرجى المحاولة لاحقاً."
	msgEnrolled      = "\n\n✅ أنت مسجل في هذه الدورة!"
	msgEnrollPending = "\n\n⏳ طلبك قيد المراجعة."
	msgEnrollReject  = "\n\n❌ تم رفض إثبات الدفع السابق. يمكنك إرسال إثبات جديد."
	msgGroupLink     = "\n\n🔗 رابط المجموعة:\n%s"

	msgStatusEmpty = "📋 حالة دفعاتك:\n\n❌ لم تقم بتسجيل أي دورات حتى الآن.\n\nاختر دورة أو مادة من القائمة الرئيسية وقم بالدفع."
	msgStatusHead  = "📋 حالة دفعاتك:\n\n"

	msgContactPrompt = "💬 تواصل مع المعلمة\n\nأرسل رسالتك الآن وسيتم إيصالها للمعلمة.\nأرسل /cancel للإلغاء."
	msgContactSent   = "✅ تم إرسال رسالتك للمعلمة بنجاح!"
	msgContactFailed = "❌ تعذر إرسال الرسالة، حاول لاحقاً."

	msgDecisionApproved = "✅ تمت الموافقة"
	msgDecisionRejected = "❌ تم الرفض"
	msgDecisionStale    = "تمت معالجة هذا الطلب مسبقاً"
	msgNoPendingAdmin   = "لا توجد طلبات بانتظار الموافقة."
	msgStats            = "📊 الإحصائيات\n\n👥 الطلاب: %d\n⏳ بانتظار الموافقة: %d\n✅ مقبول: %d\n❌ مرفوض: %d"
	msgNoStudents       = "لا يوجد طلاب بعد."
	msgToken            = "🔑 رمز الوصول للوحة API (صالح حتى %s):\n%s"
	msgTokenDisabled    = "واجهة API غير مفعّلة."

	btnBack     = "⬅️ رجوع"
	btnContact  = "💬 تواصل مع المعلمة"
	btnAddCart  = "➕ إضافة للسلة"
	btnClear    = "🗑️ إلغاء السلة"
	btnBackMats = "⬅️ رجوع للمواد"
)

var yearNames = map[int]string{
	3: "السنة الثالثة",
	4: "السنة الرابعة (ذكاء)",
	5: "السنة الخامسة (ذكاء)",
}

func yearName(year int) string {
	if name, ok := yearNames[year]; ok {
		return name
	}
	return "السنة " + strconv.Itoa(year)
}

// formatPrice - 75000 -> "75,000 ل.س"
func formatPrice(amount int) string {
	s := strconv.Itoa(amount)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String() + " ل.س"
}

func mainMenu(admin bool) tgbotapi.ReplyKeyboardMarkup {
	var kb tgbotapi.ReplyKeyboardMarkup
	if admin {
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuAdminPending), tgbotapi.NewKeyboardButton(menuAdminStudents)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuAdminStats), tgbotapi.NewKeyboardButton(menuHome)),
		)
	} else {
		kb = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuProfessional), tgbotapi.NewKeyboardButton(menuUniversity)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuContact), tgbotapi.NewKeyboardButton(menuStatus)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(menuCart)),
		)
	}
	kb.ResizeKeyboard = true
	return kb
}

func coursesKeyboard(items []model.Item) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	for _, item := range items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 "+item.Name, prefixCourse+item.ID)))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, dataBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func yearsKeyboard(years []int) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(years)+1)
	for _, year := range years {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 "+yearName(year), prefixYear+strconv.Itoa(year))))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, dataBack)))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func semesterData(year, semester int) string {
	return prefixSem + strconv.Itoa(year) + "_" + strconv.Itoa(semester)
}

func semestersKeyboard(year int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📚 الفصل الأول", semesterData(year, 1))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📚 الفصل الثاني", semesterData(year, 2))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, dataBack)),
	)
}

func materialsKeyboard(items []model.Item, selected []string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+2)
	for _, item := range items {
		mark := "➕"
		if slices.Contains(selected, item.ID) {
			mark = "✅"
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📖 "+item.Name, prefixDetail+item.ID),
			tgbotapi.NewInlineKeyboardButtonData(mark, prefixToggle+item.ID),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🧺 السلة (%d)", len(selected)), dataCart)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, dataBack)),
	)
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func payRow(itemID string) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💳 الدفع عبر Sham", prefixPay+string(model.PaymentMethodSham)+"_"+itemID),
		tgbotapi.NewInlineKeyboardButtonData("💳 الدفع عبر HARAM", prefixPay+string(model.PaymentMethodHaram)+"_"+itemID),
	)
}

func courseKeyboard(itemID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		payRow(itemID),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnContact, dataContact)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, dataBack)),
	)
}

func materialKeyboard(item model.Item) tgbotapi.InlineKeyboardMarkup {
	back := dataBack
	if item.Year != 0 && item.Semester != 0 {
		back = semesterData(item.Year, item.Semester)
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		payRow(item.ID),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnAddCart, prefixToggle+item.ID)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnContact, dataContact)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBack, back)),
	)
}

func cartKeyboard(year, semester int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 الدفع عبر Sham", prefixCartPay+string(model.PaymentMethodSham)),
			tgbotapi.NewInlineKeyboardButtonData("💳 الدفع عبر HARAM", prefixCartPay+string(model.PaymentMethodHaram)),
		),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnBackMats, semesterData(year, semester))),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(btnClear, dataClear)),
	)
}

func reviewKeyboard(userID int64, itemID string) tgbotapi.InlineKeyboardMarkup {
	approve, reject := notify.ReviewCallbacks(userID, itemID)
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("موافقة", approve),
		tgbotapi.NewInlineKeyboardButtonData("رفض", reject),
	))
}

func itemText(view service.ItemView, singlePrice, multiPrice int) string {
	item := view.Item
	var b strings.Builder

	if item.Category == model.CategoryUniversity {
		fmt.Fprintf(&b, "📚 %s\n\n", item.Name)
		if item.Instructor != "" {
			fmt.Fprintf(&b, "👨‍🏫 المدربة: %s\n", item.Instructor)
		}
		if item.Year != 0 {
			fmt.Fprintf(&b, "📅 السنة/الفصل: السنة %d / الفصل %d\n", item.Year, item.Semester)
		}
		fmt.Fprintf(&b, "💰 السعر: %s\n", formatPrice(singlePrice))
		fmt.Fprintf(&b, "🎁 خصم: عند اختيار مادتين → %s لكل مادة\n", formatPrice(multiPrice))
	} else {
		fmt.Fprintf(&b, "📚 %s\n\n", item.Name)
		if item.Instructor != "" {
			fmt.Fprintf(&b, "👨‍🏫 المدربة: %s\n", item.Instructor)
		}
		if item.Duration != "" {
			fmt.Fprintf(&b, "⏱ المدة: %s\n", item.Duration)
		}
		fmt.Fprintf(&b, "💰 السعر: %s\n", formatPrice(item.Price))
	}
	if item.Description != "" {
		fmt.Fprintf(&b, "\n📖 الوصف:\n%s\n", item.Description)
	}
	if len(item.Content) > 0 {
		b.WriteString("\n📝 المحتوى:\n")
		for _, line := range item.Content {
			fmt.Fprintf(&b, "• %s\n", line)
		}
	}

	text := strings.TrimRight(b.String(), "\n")
	switch view.Status {
	case model.ApprovalStatusApproved:
		if view.GroupLink != "" {
			text += fmt.Sprintf(msgGroupLink, view.GroupLink)
		}
		text += msgEnrolled
	case model.ApprovalStatusPending:
		text += msgEnrollPending
	case model.ApprovalStatusRejected:
		text += msgEnrollReject
	}
	return text
}

func cartText(view service.CartView) string {
	var b strings.Builder
	b.WriteString("🧺 سلتك الحالية:\n\n")
	for _, item := range view.Items {
		fmt.Fprintf(&b, "✓ %s\n", item.Name)
	}
	b.WriteString(summaryText(view.Summary))
	return b.String()
}

func summaryText(s pricing.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n📊 الملخص:\nعدد المواد: %d\n", s.Count)
	switch {
	case s.UniversityCount == 1:
		fmt.Fprintf(&b, "\n💰 السعر الحالي: %s\n", formatPrice(s.UnitPrice))
	case s.Discounted:
		fmt.Fprintf(&b, "\n🎁 خصم متعدد!\n💰 السعر الحالي: %s × %d = %s\n",
			formatPrice(s.UnitPrice), s.UniversityCount, formatPrice(s.UniversityTotal))
	}
	if s.ProfessionalTotal > 0 {
		fmt.Fprintf(&b, "📚 الدورات الاحترافية: %s\n", formatPrice(s.ProfessionalTotal))
	}
	fmt.Fprintf(&b, "\n💵 الإجمالي النهائي: %s", formatPrice(s.Total))
	return b.String()
}

func paymentText(instr service.PaymentInstructions) string {
	var b strings.Builder
	fmt.Fprintf(&b, msgPayment, instr.Method.Label(), instr.TransferNumber)
	b.WriteString("\n\n")
	for _, item := range instr.Items {
		fmt.Fprintf(&b, "✓ %s\n", item.Name)
	}
	b.WriteString(summaryText(instr.Summary))
	return b.String()
}

func statusText(entries []service.StatusEntry) string {
	if len(entries) == 0 {
		return msgStatusEmpty
	}
	var b strings.Builder
	b.WriteString(msgStatusHead)
	for _, e := range entries {
		mark := "❌"
		switch e.Status {
		case model.ApprovalStatusApproved:
			mark = "✅"
		case model.ApprovalStatusPending:
			mark = "⏳"
		}
		fmt.Fprintf(&b, "%s %s\n   الحالة: %s\n\n", mark, e.ItemName, e.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func pendingText(p model.PendingEnrollment, itemName string) string {
	name := p.FullName
	if name == "" {
		name = strconv.FormatInt(p.UserID, 10)
	}
	return fmt.Sprintf("⏳ طلب بانتظار الموافقة\nالطالب: %s\nالدورة/المادة: %s\nالطريقة: %s",
		name, itemName, model.PaymentMethod(p.Enrollment.PaymentMethod).Label())
}

func studentsText(users []model.User) string {
	if len(users) == 0 {
		return msgNoStudents
	}
	var b strings.Builder
	b.WriteString("👥 قائمة الطلاب:\n\n")
	for _, u := range users {
		name := u.FullName
		if name == "" {
			name = strconv.FormatInt(u.TelegramID, 10)
		}
		fmt.Fprintf(&b, "• %s", name)
		if u.Phone != "" {
			fmt.Fprintf(&b, " | %s", u.Phone)
		}
		if u.Email != "" {
			fmt.Fprintf(&b, " | %s", u.Email)
		}
		fmt.Fprintf(&b, " | الدورات: %d\n", len(u.Courses))
	}
	return strings.TrimRight(b.String(), "\n")
}
