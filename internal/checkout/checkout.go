package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tmarchant/vesper/internal/cart"
	"github.com/tmarchant/vesper/internal/domain"
	"github.com/tmarchant/vesper/internal/order"
	"github.com/tmarchant/vesper/internal/payment"
	"github.com/tmarchant/vesper/internal/telemetry"
)

// Session errors.
var (
	ErrSessionNotFound = &domain.Error{Code: domain.ENOTFOUND, Message: "Checkout session not found"}
	ErrSessionExpired  = &domain.Error{Code: domain.ECONFLICT, Message: "Checkout session has expired, start over"}
	ErrWrongStep       = &domain.Error{Code: domain.ECONFLICT, Message: "Operation not allowed at the current checkout step"}
	ErrPaymentSettled  = &domain.Error{Code: domain.ECONFLICT, Message: "Cannot go back after payment has settled"}

	// ErrCartChanged is returned when validation repaired the cart and the
	// shopper has not yet acknowledged the changes. The repaired cart is
	// already installed; retrying with acknowledgment proceeds.
	ErrCartChanged = &domain.Error{Code: domain.ECONFLICT, Message: "Cart was updated, review the changes before continuing"}
)

// Policy tunes checkout behavior per deployment.
type Policy struct {
	// BlockOnWarnings refuses to create an order whenever validation had
	// to repair the cart, even if the shopper acknowledged the changes.
	// Default false: repaired carts proceed once acknowledged. An empty
	// cart always blocks regardless.
	BlockOnWarnings bool
}

// Deps are the collaborators a checkout Service needs.
type Deps struct {
	Validator   *cart.Validator
	Assembler   *order.Assembler
	Orders      order.Store
	Lifecycle   *order.Lifecycle
	Coordinator *payment.Coordinator
	Sessions    SessionStore
	Metrics     *telemetry.Metrics
	Logger      *slog.Logger
	Policy      Policy
}

// Service sequences the checkout steps. Each advance persists the session
// snapshot before returning, so a crash at any point resumes cleanly.
type Service struct {
	deps Deps
	now  func() time.Time
}

// NewService creates the checkout service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps, now: time.Now}
}

// Start opens a new checkout session at the cart step.
func (s *Service) Start(ctx context.Context, userID string) (Session, error) {
	now := s.now()
	session := Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Step:      StepCart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return Session{}, fmt.Errorf("failed to save checkout session: %w", err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.CheckoutStarted()
	}
	return session, nil
}

// Resume loads a session by ID. Expired sessions are deleted and reported
// as expired; the shopper starts over with their cart intact.
func (s *Service) Resume(ctx context.Context, id string) (Session, error) {
	session, err := s.deps.Sessions.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}

	if session.Expired(s.now()) {
		if err := s.deps.Sessions.Delete(ctx, id); err != nil {
			s.deps.Logger.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// ConfirmCartInput is what the shopper submits to finish the cart step.
type ConfirmCartInput struct {
	Address       domain.ShippingAddress
	ClientSummary domain.PriceSummary
	Discount      domain.Money
	PaymentMethod string

	// AcknowledgeIssues accepts validation repairs from a prior attempt.
	AcknowledgeIssues bool
}

// ConfirmCart completes step 0: the cart is validated against the catalog,
// the order is assembled and persisted as PENDING, and the session advances
// to the payment step.
//
// If validation repaired the cart, the repaired lines replace the cart
// contents and the attempt fails with ErrCartChanged until the shopper
// acknowledges (or always, under Policy.BlockOnWarnings). A cart that is
// empty, before or after repair, always fails with ErrEmptyCart.
func (s *Service) ConfirmCart(ctx context.Context, sessionID string, cartStore *cart.Store, in ConfirmCartInput) (Session, domain.CartValidation, error) {
	session, err := s.resumeAt(ctx, sessionID, StepCart)
	if err != nil {
		return Session{}, domain.CartValidation{}, err
	}

	lines := cartStore.Lines()
	if len(lines) == 0 {
		return Session{}, domain.CartValidation{}, domain.ErrEmptyCart
	}

	validation, err := s.deps.Validator.Validate(ctx, lines)
	if err != nil {
		return Session{}, domain.CartValidation{}, fmt.Errorf("cart validation failed: %w", err)
	}

	if !validation.IsValid {
		if s.deps.Metrics != nil {
			for _, issue := range validation.Issues {
				s.deps.Metrics.CartLineIssue(issue.Reason)
			}
		}
		if err := cartStore.Replace(validation.Lines); err != nil {
			return Session{}, validation, fmt.Errorf("failed to install repaired cart: %w", err)
		}
		if validation.Empty() {
			return Session{}, validation, domain.ErrEmptyCart
		}
		if s.deps.Policy.BlockOnWarnings || !in.AcknowledgeIssues {
			return Session{}, validation, ErrCartChanged
		}
	}

	req, err := s.deps.Assembler.Assemble(order.AssembleInput{
		UserID:        session.UserID,
		Lines:         validation.Lines,
		Address:       in.Address,
		ClientSummary: in.ClientSummary,
		Discount:      in.Discount,
		PaymentMethod: in.PaymentMethod,
	})
	if err != nil {
		return Session{}, validation, err
	}

	created, err := s.deps.Orders.CreateOrder(ctx, req)
	if err != nil {
		return Session{}, validation, fmt.Errorf("failed to persist order: %w", err)
	}

	session.OrderID = created.ID
	session.Step = StepPayment
	session.Address = created.ShippingAddress
	session.Summary = created.Summary
	session.Items = created.Items
	session.UpdatedAt = s.now()
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return Session{}, validation, fmt.Errorf("failed to save checkout session: %w", err)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.OrderCreated(created.Summary.Total.InexactFloat64())
		s.deps.Metrics.CheckoutStep(StepPayment.String())
	}
	s.deps.Logger.Info("checkout advanced to payment",
		"session_id", session.ID,
		"order_id", created.ID,
		"order_number", created.OrderNumber,
	)
	return session, validation, nil
}

// PreparePayment opens the provider-side order for the session's order and
// returns its ID for the client to drive approval. Safe to call repeatedly.
func (s *Service) PreparePayment(ctx context.Context, sessionID string) (string, error) {
	session, err := s.resumeAt(ctx, sessionID, StepPayment)
	if err != nil {
		return "", err
	}

	o, err := s.deps.Orders.GetOrder(ctx, session.OrderID)
	if err != nil {
		return "", fmt.Errorf("failed to load order %s: %w", session.OrderID, err)
	}
	return s.deps.Coordinator.EnsureProviderOrder(ctx, o)
}

// Capture completes step 1: payment is captured and reconciled, the session
// moves to completed and the cart is cleared. The cart survives every
// failure path; it is only emptied once money has settled.
//
// Idempotent at the session level: capturing a completed session replays the
// settled order, so a double-click or a retry after a lost response never
// fails and never charges twice.
func (s *Service) Capture(ctx context.Context, sessionID string, cartStore *cart.Store) (Session, *domain.Order, error) {
	session, err := s.Resume(ctx, sessionID)
	if err != nil {
		return Session{}, nil, err
	}

	if session.Step == StepCompleted {
		paid, err := s.deps.Orders.GetOrder(ctx, session.OrderID)
		if err != nil {
			return Session{}, nil, fmt.Errorf("failed to load order %s: %w", session.OrderID, err)
		}
		return session, paid, nil
	}
	if session.Step != StepPayment {
		return Session{}, nil, wrongStepError(StepPayment, session.Step)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.PaymentAttempt()
	}

	paid, err := s.deps.Coordinator.CaptureAndReconcile(ctx, session.OrderID)
	if err != nil {
		if s.deps.Metrics != nil {
			kind := "transient"
			if domain.IsCode(err, domain.EPAYMENT) {
				kind = "declined"
			}
			s.deps.Metrics.PaymentFailed(kind)
		}
		return Session{}, nil, err
	}

	session.Step = StepCompleted
	session.UpdatedAt = s.now()
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return Session{}, nil, fmt.Errorf("failed to save checkout session: %w", err)
	}

	if cartStore != nil {
		if err := cartStore.Clear(); err != nil {
			s.deps.Logger.Warn("failed to clear cart after capture", "session_id", session.ID, "error", err)
		}
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.PaymentSucceeded()
		s.deps.Metrics.CheckoutStep(StepCompleted.String())
		s.deps.Metrics.CheckoutCompleted()
	}
	s.deps.Logger.Info("checkout completed",
		"session_id", session.ID,
		"order_id", paid.ID,
		"order_number", paid.OrderNumber,
	)
	return session, paid, nil
}

// Back returns a payment-step session to the cart step, cancelling its
// PENDING order. Once the order is PAID there is no way back.
func (s *Service) Back(ctx context.Context, sessionID string) (Session, error) {
	session, err := s.resumeAt(ctx, sessionID, StepPayment)
	if err != nil {
		return Session{}, err
	}

	o, err := s.deps.Orders.GetOrder(ctx, session.OrderID)
	if err != nil {
		return Session{}, fmt.Errorf("failed to load order %s: %w", session.OrderID, err)
	}
	if o.Status != domain.StatusPending {
		return Session{}, ErrPaymentSettled
	}

	if _, err := s.deps.Lifecycle.Transition(ctx, o.ID, domain.StatusCancelled); err != nil {
		return Session{}, fmt.Errorf("failed to cancel order %s: %w", o.ID, err)
	}

	session.OrderID = ""
	session.Step = StepCart
	session.Summary = domain.PriceSummary{}
	session.Items = nil
	session.UpdatedAt = s.now()
	if err := s.deps.Sessions.Save(ctx, session); err != nil {
		return Session{}, fmt.Errorf("failed to save checkout session: %w", err)
	}
	return session, nil
}

// resumeAt loads a live session and checks it is at the expected step.
func (s *Service) resumeAt(ctx context.Context, sessionID string, want Step) (Session, error) {
	session, err := s.Resume(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if session.Step != want {
		return Session{}, wrongStepError(want, session.Step)
	}
	return session, nil
}

func wrongStepError(want, got Step) error {
	return &domain.Error{
		Code:    domain.ECONFLICT,
		Message: fmt.Sprintf("Operation requires the %s step, session is at %s", want, got),
		Op:      "checkout.step",
		Err:     ErrWrongStep,
	}
}
