package bot

import (
	"errors"
	"strconv"
	"strings"

	"github.com/iurnickita/coursebot/internal/model"
)

type CallbackKind int

const (
	CallbackUnknown CallbackKind = iota
	CallbackCourse
	CallbackBack
	CallbackYear
	CallbackSemester
	CallbackDetail
	CallbackToggle
	CallbackCart
	CallbackClear
	CallbackCartPay
	CallbackDirectPay
	CallbackApprove
	CallbackReject
	CallbackContact
)

// Callback - разобранные данные inline-кнопки.
type Callback struct {
	Kind     CallbackKind
	ItemID   string
	Year     int
	Semester int
	Method   model.PaymentMethod
	UserID   int64
}

var ErrBadCallback = errors.New("bad callback data")

// Префиксы данных кнопок. Порядок проверки важен: uni_pay_ раньше uni_.
const (
	prefixCourse  = "course_"
	prefixYear    = "uni_year_"
	prefixSem     = "uni_sem_"
	prefixDetail  = "uni_detail_"
	prefixToggle  = "uni_toggle_"
	prefixCartPay = "uni_pay_"
	prefixPay     = "pay_"
	prefixApprove = "admin_approve_"
	prefixReject  = "admin_reject_"

	dataBack    = "back_courses"
	dataCart    = "uni_cart"
	dataClear   = "uni_clear"
	dataContact = "contact_admin"
)

func ParseCallback(data string) (Callback, error) {
	switch data {
	case dataBack:
		return Callback{Kind: CallbackBack}, nil
	case dataCart:
		return Callback{Kind: CallbackCart}, nil
	case dataClear:
		return Callback{Kind: CallbackClear}, nil
	case dataContact:
		return Callback{Kind: CallbackContact}, nil
	}

	switch {
	case strings.HasPrefix(data, prefixCourse):
		return itemCallback(CallbackCourse, strings.TrimPrefix(data, prefixCourse))

	case strings.HasPrefix(data, prefixYear):
		year, err := strconv.Atoi(strings.TrimPrefix(data, prefixYear))
		if err != nil {
			return Callback{}, ErrBadCallback
		}
		return Callback{Kind: CallbackYear, Year: year}, nil

	case strings.HasPrefix(data, prefixSem):
		// uni_sem_<year>_<semester>
		year, sem, ok := strings.Cut(strings.TrimPrefix(data, prefixSem), "_")
		if !ok {
			return Callback{}, ErrBadCallback
		}
		y, err1 := strconv.Atoi(year)
		s, err2 := strconv.Atoi(sem)
		if err1 != nil || err2 != nil {
			return Callback{}, ErrBadCallback
		}
		return Callback{Kind: CallbackSemester, Year: y, Semester: s}, nil

	case strings.HasPrefix(data, prefixDetail):
		return itemCallback(CallbackDetail, strings.TrimPrefix(data, prefixDetail))

	case strings.HasPrefix(data, prefixToggle):
		return itemCallback(CallbackToggle, strings.TrimPrefix(data, prefixToggle))

	case strings.HasPrefix(data, prefixCartPay):
		method := model.PaymentMethod(strings.TrimPrefix(data, prefixCartPay))
		if !method.Valid() {
			return Callback{}, ErrBadCallback
		}
		return Callback{Kind: CallbackCartPay, Method: method}, nil

	case strings.HasPrefix(data, prefixPay):
		// pay_<method>_<item>
		method, itemID, ok := strings.Cut(strings.TrimPrefix(data, prefixPay), "_")
		if !ok || !model.PaymentMethod(method).Valid() || itemID == "" {
			return Callback{}, ErrBadCallback
		}
		return Callback{Kind: CallbackDirectPay, Method: model.PaymentMethod(method), ItemID: itemID}, nil

	case strings.HasPrefix(data, prefixApprove):
		return decisionCallback(CallbackApprove, strings.TrimPrefix(data, prefixApprove))

	case strings.HasPrefix(data, prefixReject):
		return decisionCallback(CallbackReject, strings.TrimPrefix(data, prefixReject))
	}
	return Callback{}, ErrBadCallback
}

func itemCallback(kind CallbackKind, itemID string) (Callback, error) {
	if itemID == "" {
		return Callback{}, ErrBadCallback
	}
	return Callback{Kind: kind, ItemID: itemID}, nil
}

// decisionCallback разбирает <user_id>_<item_id>; в id позиции бывают подчёркивания.
func decisionCallback(kind CallbackKind, rest string) (Callback, error) {
	uid, itemID, ok := strings.Cut(rest, "_")
	if !ok || itemID == "" {
		return Callback{}, ErrBadCallback
	}
	userID, err := strconv.ParseInt(uid, 10, 64)
	if err != nil {
		return Callback{}, ErrBadCallback
	}
	return Callback{Kind: kind, UserID: userID, ItemID: itemID}, nil
}
