package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/iliyamo/seatly/internal/model"
)

// PaymentCompletedEvent is published by the payment service once a held
// seat has been paid for.
type PaymentCompletedEvent struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	AmountCents   int64  `json:"amount_cents"`
	PaidAt        string `json:"paid_at"`
}

// Confirmer turns a pending reservation into a confirmed one.
type Confirmer interface {
	Confirm(ctx context.Context, id string) (model.Reservation, error)
}

// PaymentHandler confirms the reservation named by each payment event.
// Payments for reservations that are gone or no longer pending are
// acknowledged and logged since redelivery cannot change the outcome.
// Storage failures are requeued.
func PaymentHandler(c Confirmer) Handler {
	return func(ctx context.Context, body []byte) error {
		var ev PaymentCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return fmt.Errorf("unmarshal: %w", err)
		}
		if ev.ReservationID == "" {
			return fmt.Errorf("payment %s: missing reservation_id", ev.PaymentID)
		}
		rec, err := c.Confirm(ctx, ev.ReservationID)
		switch {
		case err == nil:
			log.Printf("payment-consumer: confirmed reservation=%s route=%s seat=%s payment=%s",
				rec.ID, rec.RouteID, rec.SeatNumber, ev.PaymentID)
			return nil
		case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrInvalidState):
			log.Printf("payment-consumer: payment=%s reservation=%s not confirmable: %v",
				ev.PaymentID, ev.ReservationID, err)
			return nil
		default:
			return fmt.Errorf("%w: confirm %s: %w", ErrRetry, ev.ReservationID, err)
		}
	}
}
