package models

import "time"

type BorrowalStatus string

const (
	StatusIssued   BorrowalStatus = "Issued"
	StatusReturned BorrowalStatus = "Returned"

	BorrowalEntity = "borrowal"
)

type PaymentMode string

const PaymentOffline PaymentMode = "OFFLINE"

var ValidBorrowalStatuses = map[string]bool{
	string(StatusIssued):   true,
	string(StatusReturned): true,
}

func IsValidBorrowalStatus(status string) bool {
	return ValidBorrowalStatuses[status]
}

// MemberSummary and BookSummary are the display fields joined onto a
// borrowal when it is read back.
type MemberSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BookSummary struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Borrowal struct {
	ID            string         `json:"_id"`
	BookID        string         `json:"bookId"`
	MemberID      string         `json:"memberId"`
	BorrowedDate  time.Time      `json:"borrowedDate"`
	DueDate       time.Time      `json:"dueDate"`
	Status        BorrowalStatus `json:"status"`
	FineAmount    float64        `json:"fineAmount"`
	FinePaid      bool           `json:"finePaid"`
	PaymentMode   PaymentMode    `json:"paymentMode"`
	ReceiptNumber *string        `json:"receiptNumber"`
	PaidAt        *time.Time     `json:"paidAt"`
	AmountPaid    float64        `json:"amountPaid"`
	ReturnedAt    *time.Time     `json:"returnedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`

	Member *MemberSummary `json:"member,omitempty"`
	Book   *BookSummary   `json:"book,omitempty"`
}

func (b Borrowal) IsActive() bool {
	return b.Status == StatusIssued
}

// MemberName and BookName read the joined display fields, empty when the
// referenced record no longer exists.
func (b Borrowal) MemberName() string {
	if b.Member == nil {
		return ""
	}
	return b.Member.Name
}

func (b Borrowal) BookName() string {
	if b.Book == nil {
		return ""
	}
	return b.Book.Name
}
