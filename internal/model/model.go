package model

import "time"

// Каталог

type Category string

const (
	CategoryProfessional Category = "professional"
	CategoryUniversity   Category = "university"
)

type Item struct {
	ID          string
	Name        string
	Description string
	Price       int
	Category    Category
	Year        int
	Semester    int
	Duration    string
	Content     []string
	Instructor  string
}

// Способы оплаты

type PaymentMethod string

const (
	PaymentMethodSham  PaymentMethod = "sham"
	PaymentMethodHaram PaymentMethod = "haram"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodSham || m == PaymentMethodHaram
}

func (m PaymentMethod) Label() string {
	switch m {
	case PaymentMethodSham:
		return "Sham"
	case PaymentMethodHaram:
		return "HARAM"
	default:
		return string(m)
	}
}

// Записи на курсы

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

type Enrollment struct {
	ItemID         string    `json:"course_id"`
	PaymentMethod  string    `json:"payment_method"`
	PaymentReceipt string    `json:"payment_receipt"`
	ApprovalStatus string    `json:"approval_status"`
	UpdatedAt      time.Time `json:"updated_at"`
}

const (
	NotificationPaymentSubmitted = "payment_submitted"
	NotificationPaymentApproved  = "payment_approved"
	NotificationPaymentRejected  = "payment_rejected"
)

type Notification struct {
	ID        string    `json:"id"`
	StudentID int64     `json:"student_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Пользователь

type User struct {
	TelegramID    int64
	FullName      string
	Phone         string
	Email         string
	LastActive    time.Time
	CreatedAt     time.Time
	Courses       []Enrollment
	Notifications []Notification
}

func NewUser(telegramID int64) User {
	now := time.Now().UTC()
	return User{
		TelegramID: telegramID,
		LastActive: now,
		CreatedAt:  now,
	}
}

// IsRegistered сообщает, заполнены ли данные регистрации.
func (u *User) IsRegistered() bool {
	return u.FullName != "" && u.Phone != "" && u.Email != ""
}

// Enrollment возвращает запись по курсу, если она есть.
func (u *User) Enrollment(itemID string) (*Enrollment, bool) {
	for i := range u.Courses {
		if u.Courses[i].ItemID == itemID {
			return &u.Courses[i], true
		}
	}
	return nil, false
}

// Clone делает глубокую копию документа пользователя.
func (u User) Clone() User {
	c := u
	c.Courses = append([]Enrollment(nil), u.Courses...)
	c.Notifications = append([]Notification(nil), u.Notifications...)
	return c
}

// Админка

type PendingEnrollment struct {
	UserID     int64
	FullName   string
	Enrollment Enrollment
}

type Stats struct {
	Users    int
	Pending  int
	Approved int
	Rejected int
}
