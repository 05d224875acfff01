package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking/internal/apperr"
	"github.com/iliyamo/cinema-booking/internal/external"
	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/pricing"
	"github.com/iliyamo/cinema-booking/internal/queue"
	"github.com/iliyamo/cinema-booking/internal/repository"
	"github.com/iliyamo/cinema-booking/internal/schedule"
)

// Reservation modes.
const (
	ModeDirect  = "direct"
	ModePayment = "payment"
)

const publishTimeout = 3 * time.Second

type ReservationService struct {
	reservations ReservationStore
	screenings   ScreeningStore
	users        UserStore
	payments     PaymentProvider
	events       EventPublisher
	metrics      *metrics.Metrics
	now          Clock
	mode         string
}

// ReservationDeps bundles the collaborators of ReservationService.
type ReservationDeps struct {
	Reservations ReservationStore
	Screenings   ScreeningStore
	Users        UserStore
	Payments     PaymentProvider // required in payment mode
	Events       EventPublisher  // optional
	Metrics      *metrics.Metrics
	Now          Clock
	Mode         string
}

func NewReservationService(d ReservationDeps) *ReservationService {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Mode == "" {
		d.Mode = ModeDirect
	}
	if d.Events == nil {
		d.Events = queue.LogPublisher{}
	}
	return &ReservationService{
		reservations: d.Reservations,
		screenings:   d.Screenings,
		users:        d.Users,
		payments:     d.Payments,
		events:       d.Events,
		metrics:      d.Metrics,
		now:          d.Now,
		mode:         d.Mode,
	}
}

// Mode reports whether reservations are created directly or after payment.
func (s *ReservationService) Mode() string { return s.mode }

// precheck loads the screening and rejects the common failure cases before
// any write. The store re-enforces the duplicate and seat rules.
func (s *ReservationService) precheck(ctx context.Context, userID, screeningID uint64) (model.Screening, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return model.Screening{}, translate(err, "user")
	}
	sc, err := s.screenings.GetByID(ctx, screeningID)
	if err != nil {
		return model.Screening{}, translate(err, "screening")
	}
	exists, err := s.reservations.Exists(ctx, userID, screeningID)
	if err != nil {
		return model.Screening{}, translate(err, "reservation")
	}
	if exists {
		return model.Screening{}, errAlreadyReserved()
	}
	if sc.NumberOfAvailableSeats <= 0 {
		return model.Screening{}, apperr.Conflict(apperr.ReasonNoSeatsAvailable,
			"there are no available seats for this screening")
	}
	return sc, nil
}

// Create books one seat for the caller.
func (s *ReservationService) Create(ctx context.Context, actor Actor, screeningID uint64) (model.Reservation, error) {
	if s.mode == ModePayment {
		return model.Reservation{}, apperr.Validation(apperr.ReasonInvalidInput,
			"reservations must be paid through checkout")
	}
	sc, err := s.precheck(ctx, actor.UserID, screeningID)
	if err != nil {
		s.metrics.Reservation("create", string(apperr.ReasonOf(err)))
		return model.Reservation{}, err
	}
	res := model.Reservation{UserID: actor.UserID, ScreeningID: screeningID}
	if err := s.insert(ctx, &res, sc); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// Checkout opens a payment order for one ticket in currency. No
// reservation is written until Confirm captures the order.
func (s *ReservationService) Checkout(ctx context.Context, actor Actor, screeningID uint64, currency, redirectURL string) (model.Checkout, error) {
	if s.mode != ModePayment || s.payments == nil {
		return model.Checkout{}, apperr.Validation(apperr.ReasonInvalidInput, "payments are not enabled")
	}
	cur, ok := pricing.ParseCurrency(currency)
	if !ok {
		return model.Checkout{}, apperr.Validation(apperr.ReasonInvalidInput, "currency must be one of USD, EUR, CHF")
	}
	sc, err := s.precheck(ctx, actor.UserID, screeningID)
	if err != nil {
		return model.Checkout{}, err
	}
	amount := sc.Prices.For(cur)
	ref, err := s.payments.CreateOrder(ctx, external.Order{
		Currency:  string(cur),
		Amount:    amount,
		ReturnURL: redirectURL,
		CancelURL: redirectURL,
		Reference: orderReference(sc.ID, actor.UserID),
	})
	if err != nil {
		return model.Checkout{}, err
	}
	return model.Checkout{
		OrderID:     ref.ID,
		ApproveURL:  ref.ApproveURL,
		ScreeningID: sc.ID,
		Currency:    string(cur),
		Amount:      amount,
	}, nil
}

// orderReference ties a checkout order to one screening and one buyer.
func orderReference(screeningID, userID uint64) string {
	return fmt.Sprintf("screening-%d-user-%d", screeningID, userID)
}

// checkOrder rejects an order opened for another screening or buyer, or
// one that pays less than the current ticket price.
func checkOrder(o external.OrderDetails, sc model.Screening, userID uint64) error {
	if o.Reference != orderReference(sc.ID, userID) {
		return apperr.Validation(apperr.ReasonInvalidInput, "order was not opened for this screening")
	}
	cur, ok := pricing.ParseCurrency(o.Currency)
	if !ok {
		return apperr.Validation(apperr.ReasonInvalidInput, "order currency is not supported")
	}
	if o.Amount+0.005 < sc.Prices.For(cur) {
		return apperr.Conflict(apperr.ReasonPaymentIncomplete,
			fmt.Sprintf("order pays %.2f %s, ticket costs %.2f", o.Amount, cur, sc.Prices.For(cur)))
	}
	return nil
}

// Confirm captures an approved order and books the seat. The order must
// have been opened for this screening and caller; nothing is captured
// otherwise. A capture that does not complete leaves the inventory
// untouched.
func (s *ReservationService) Confirm(ctx context.Context, actor Actor, orderID string, screeningID uint64) (model.Reservation, error) {
	if s.mode != ModePayment || s.payments == nil {
		return model.Reservation{}, apperr.Validation(apperr.ReasonInvalidInput, "payments are not enabled")
	}
	sc, err := s.precheck(ctx, actor.UserID, screeningID)
	if err != nil {
		s.metrics.Reservation("confirm", string(apperr.ReasonOf(err)))
		return model.Reservation{}, err
	}
	order, err := s.payments.GetOrder(ctx, orderID)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := checkOrder(order, sc, actor.UserID); err != nil {
		s.metrics.Reservation("confirm", string(apperr.ReasonOf(err)))
		logger.WithContext(ctx).Warn("order does not match screening",
			"order_id", orderID, "screening_id", screeningID, "user_id", actor.UserID, "reference", order.Reference)
		return model.Reservation{}, err
	}
	status, err := s.payments.Capture(ctx, orderID)
	if err != nil {
		return model.Reservation{}, err
	}
	if status != external.StatusCompleted {
		s.metrics.Reservation("confirm", string(apperr.ReasonPaymentIncomplete))
		return model.Reservation{}, apperr.Conflict(apperr.ReasonPaymentIncomplete,
			fmt.Sprintf("payment was not completed (status %s)", status))
	}

	res := model.Reservation{
		UserID:        actor.UserID,
		ScreeningID:   screeningID,
		OrderID:       orderID,
		PaymentStatus: model.PaymentStatusCompleted,
	}
	if err := s.insert(ctx, &res, sc); err != nil {
		if apperr.ReasonOf(err) == apperr.ReasonNoSeatsAvailable {
			logger.WithContext(ctx).Error("payment captured but screening sold out",
				"order_id", orderID, "screening_id", screeningID, "user_id", actor.UserID)
		}
		return model.Reservation{}, err
	}
	return res, nil
}

func (s *ReservationService) insert(ctx context.Context, res *model.Reservation, sc model.Screening) error {
	op := "create"
	if res.OrderID != "" {
		op = "confirm"
	}
	left, err := s.reservations.Create(ctx, res)
	switch {
	case err == nil:
	case repository.IsDuplicateKey(err, repository.KeyUserScreening):
		err = errAlreadyReserved()
	case errors.Is(err, repository.ErrDuplicate):
		err = apperr.Wrap(apperr.KindConflict, apperr.ReasonAlreadyReserved, "this order was already used", err)
	default:
		err = translate(err, "screening")
	}
	if err != nil {
		s.metrics.Reservation(op, string(apperr.ReasonOf(err)))
		return err
	}
	s.metrics.Reservation(op, "ok")
	sc.NumberOfAvailableSeats = left
	s.publish(ctx, queue.EventReservationCreated, *res, sc)
	return nil
}

// Cancel deletes a reservation and returns its seat. Only the owner or an
// admin may cancel, and never one day or less before the screening.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, id uint64) error {
	now := s.now()
	var screening model.Screening
	res, seats, err := s.reservations.Delete(ctx, id, func(res model.Reservation, sc model.Screening) error {
		if res.UserID != actor.UserID && !actor.IsAdmin() {
			return apperr.Forbidden("you can only cancel your own reservations")
		}
		date, err := time.ParseInLocation(schedule.DateLayout, sc.Date, time.UTC)
		if err != nil {
			return apperr.Internal("stored screening date is malformed", err)
		}
		screening = sc
		return schedule.CheckCancellable(now, date)
	})
	if err != nil {
		err = translate(err, "reservation")
		s.metrics.Reservation("cancel", string(apperr.ReasonOf(err)))
		return err
	}
	if seats.Clamped {
		logger.WithContext(ctx).Error("seat release clamped at hall capacity",
			"reservation_id", res.ID, "screening_id", res.ScreeningID)
	}
	s.metrics.Reservation("cancel", "ok")
	screening.NumberOfAvailableSeats = seats.Left
	s.publish(ctx, queue.EventReservationCancelled, res, screening)
	return nil
}

// ListByUser pages through a user's reservations. Only the user or an
// admin may list them.
func (s *ReservationService) ListByUser(ctx context.Context, actor Actor, userID uint64, p model.PageRequest) (Page[model.ReservationView], error) {
	if actor.UserID != userID && !actor.IsAdmin() {
		return Page[model.ReservationView]{}, apperr.Forbidden("you can only view your own reservations")
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return Page[model.ReservationView]{}, translate(err, "user")
	}
	p = p.Normalize()
	items, total, err := s.reservations.ListByUser(ctx, userID, p)
	if err != nil {
		return Page[model.ReservationView]{}, translate(err, "reservation")
	}
	return newPage(items, total, p), nil
}

// publish never fails the request; delivery problems are logged.
func (s *ReservationService) publish(ctx context.Context, typ string, res model.Reservation, sc model.Screening) {
	ev := queue.NewReservationEvent(uuid.NewString(), typ, res, sc, s.now())
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.events.Publish(pctx, ev); err != nil {
		logger.WithContext(ctx).Warn("failed to publish reservation event", "type", typ,
			"reservation_id", res.ID, "error", err)
	}
}

func errAlreadyReserved() error {
	return apperr.Conflict(apperr.ReasonAlreadyReserved, "you already made a reservation for this screening")
}
