package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IBM/sarama"

	"hotelbook/internal/app/handlers/payments"
)

const paymentPaidType = "payment.paid"

type PaymentConfirmer interface {
	HandlePaid(ctx context.Context, evt payments.PaymentPaid) error
}

// PaymentHandler decodes payment service events. It accepts CloudEvents
// envelopes ("type") and the legacy {"event","data"} envelope.
type PaymentHandler struct {
	Confirmer PaymentConfirmer
	Logger    *slog.Logger
}

type paymentEnvelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type paymentData struct {
	PaymentID      string      `json:"payment_id"`
	PaymentIDCamel string      `json:"paymentId"`
	BookingID      string      `json:"booking_id"`
	BookingIDCamel string      `json:"bookingId"`
	Amount         json.Number `json:"amount"`
	Currency       string      `json:"currency"`
	EventID        string      `json:"event_id"`
}

func (h PaymentHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	evt, ok, err := decodePaymentPaid(msg)
	if err != nil {
		// acked: a retry cannot fix the payload
		h.logger().Warn("payment event undecodable", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return h.Confirmer.HandlePaid(ctx, evt)
}

// decodePaymentPaid reports ok=false for events other than payment.paid.
func decodePaymentPaid(msg *sarama.ConsumerMessage) (payments.PaymentPaid, bool, error) {
	var env paymentEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return payments.PaymentPaid{}, false, fmt.Errorf("kafka: decode envelope: %w", err)
	}
	kind := env.Type
	if kind == "" {
		kind = env.Event
	}
	if kind == "" {
		kind = header(msg, "ce-type")
	}
	if kind != paymentPaidType && !strings.HasPrefix(kind, paymentPaidType+".v") {
		return payments.PaymentPaid{}, false, nil
	}
	var data paymentData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return payments.PaymentPaid{}, false, fmt.Errorf("kafka: decode payment data: %w", err)
		}
	}
	evt := payments.PaymentPaid{
		EventID:   firstNonEmpty(env.ID, data.EventID),
		PaymentID: firstNonEmpty(data.PaymentID, data.PaymentIDCamel),
		BookingID: firstNonEmpty(data.BookingID, data.BookingIDCamel),
		Amount:    data.Amount.String(),
		Currency:  data.Currency,
	}
	return evt, true, nil
}

func header(msg *sarama.ConsumerMessage, key string) string {
	for _, h := range msg.Headers {
		if h != nil && strings.EqualFold(string(h.Key), key) {
			return string(h.Value)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (h PaymentHandler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}
