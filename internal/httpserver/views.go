package httpserver

import (
	"net/http"
	"strconv"

	"github.com/dummy-library/inventory-core/internal/money"
	"github.com/dummy-library/inventory-core/internal/store"
)

// Every monetary field ships as both raw cents and a formatted string,
// per spec §6.

type bookView struct {
	ID              string `json:"id"`
	ISBN            string `json:"isbn"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	SellCents       int64  `json:"sellCents"`
	SellFormatted   string `json:"sellFormatted"`
	BorrowCents     int64  `json:"borrowCents"`
	BorrowFormatted string `json:"borrowFormatted"`
	StockCents      int64  `json:"stockCents"`
	StockFormatted  string `json:"stockFormatted"`
	AvailableCopies int    `json:"availableCopies"`
	SeededCopies    int    `json:"seededCopies"`
}

func newBookView(b store.Book) bookView {
	return bookView{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		Author:          b.Author,
		Genre:           b.Genre,
		SellCents:       b.SellCents,
		SellFormatted:   money.Formatted(b.SellCents),
		BorrowCents:     b.BorrowCents,
		BorrowFormatted: money.Formatted(b.BorrowCents),
		StockCents:      b.StockCents,
		StockFormatted:  money.Formatted(b.StockCents),
		AvailableCopies: b.AvailableCopies,
		SeededCopies:    b.SeededCopies,
	}
}

type borrowView struct {
	ID         string  `json:"id"`
	UserID     string  `json:"userId"`
	BookID     string  `json:"bookId"`
	BorrowedAt string  `json:"borrowedAt"`
	DueAt      string  `json:"dueAt"`
	ReturnedAt *string `json:"returnedAt,omitempty"`
	Status     string  `json:"status"`
	IsExisting bool    `json:"isExisting"`
}

func newBorrowView(b store.Borrow, isExisting bool) borrowView {
	v := borrowView{
		ID:         b.ID,
		UserID:     b.UserID,
		BookID:     b.BookID,
		BorrowedAt: b.BorrowedAt.Format(timeFormat),
		DueAt:      b.DueAt.Format(timeFormat),
		Status:     string(b.Status),
		IsExisting: isExisting,
	}
	if b.ReturnedAt != nil {
		s := b.ReturnedAt.Format(timeFormat)
		v.ReturnedAt = &s
	}
	return v
}

type purchaseView struct {
	ID          string  `json:"id"`
	UserID      string  `json:"userId"`
	BookID      string  `json:"bookId"`
	PriceCents  int64   `json:"priceCents"`
	PriceFmt    string  `json:"priceFormatted"`
	PurchasedAt string  `json:"purchasedAt"`
	CanceledAt  *string `json:"canceledAt,omitempty"`
	Status      string  `json:"status"`
	IsExisting  bool    `json:"isExisting"`
}

func newPurchaseView(p store.Purchase, isExisting bool) purchaseView {
	v := purchaseView{
		ID:          p.ID,
		UserID:      p.UserID,
		BookID:      p.BookID,
		PriceCents:  p.PriceCents,
		PriceFmt:    money.Formatted(p.PriceCents),
		PurchasedAt: p.PurchasedAt.Format(timeFormat),
		Status:      string(p.Status),
		IsExisting:  isExisting,
	}
	if p.CanceledAt != nil {
		s := p.CanceledAt.Format(timeFormat)
		v.CanceledAt = &s
	}
	return v
}

type movementView struct {
	ID            string `json:"id"`
	AmountCents   int64  `json:"amountCents"`
	AmountFmt     string `json:"amountFormatted"`
	Type          string `json:"type"`
	Reason        string `json:"reason"`
	RelatedEntity string `json:"relatedEntity"`
	CreatedAt     string `json:"createdAt"`
}

func newMovementView(m store.WalletMovement) movementView {
	return movementView{
		ID:            m.ID,
		AmountCents:   m.AmountCents,
		AmountFmt:     money.Formatted(m.AmountCents),
		Type:          string(m.Type),
		Reason:        m.Reason,
		RelatedEntity: m.RelatedEntity,
		CreatedAt:     m.CreatedAt.Format(timeFormat),
	}
}

type jobView struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	RunAt       string `json:"runAt"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"maxAttempts"`
	LastError   string `json:"lastError,omitempty"`
}

func newJobView(j store.Job) jobView {
	return jobView{
		ID:          j.ID,
		Type:        string(j.Type),
		Status:      string(j.Status),
		RunAt:       j.RunAt.Format(timeFormat),
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		LastError:   j.LastError,
	}
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// pageParams parses page/pageSize query params, applying spec §6 defaults
// and bounds (page≥1 default 1, pageSize∈[1,100] default 10).
func pageParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = 10
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v >= 1 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v >= 1 && v <= 100 {
		pageSize = v
	}
	return page, pageSize
}
