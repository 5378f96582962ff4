package mongo

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"hotelbook/internal/app/uow"
	"hotelbook/internal/domain/shared/money"
)

const (
	roomsCollection      = "rooms"
	categoriesCollection = "room_categories"
	bookingsCollection   = "bookings"
)

// writeConflictCode is the server code for a transactional write conflict.
const writeConflictCode = 112

const transientTxnLabel = "TransientTransactionError"

type moneyDocument struct {
	Amount   primitive.Decimal128 `bson:"amount"`
	Currency string               `bson:"currency"`
}

func newMoneyDocument(m money.Money) (moneyDocument, error) {
	amount, err := primitive.ParseDecimal128(m.Amount.String())
	if err != nil {
		return moneyDocument{}, err
	}
	return moneyDocument{Amount: amount, Currency: m.Currency}, nil
}

// toMoney returns the zero Money for documents without a currency.
func (d moneyDocument) toMoney() (money.Money, error) {
	if d.Currency == "" {
		return money.Money{}, nil
	}
	amount, err := decimal.NewFromString(d.Amount.String())
	if err != nil {
		return money.Money{}, err
	}
	return money.New(amount, d.Currency)
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// translateWriteErr maps transactional write conflicts to uow.ErrConflict.
func translateWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if isWriteConflict(err) {
		return errors.Join(uow.ErrConflict, err)
	}
	return err
}

func isWriteConflict(err error) bool {
	var srvErr mongo.ServerError
	if errors.As(err, &srvErr) {
		return srvErr.HasErrorCode(writeConflictCode) || srvErr.HasErrorLabel(transientTxnLabel)
	}
	return false
}
