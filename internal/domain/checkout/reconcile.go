// internal/domain/checkout/reconcile.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/bag"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/order"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/payment"
	"github.com/chancecaccamise/farm-box-canvas-sub000/internal/domain/subscription"
)

// HandleWebhook verifies a provider delivery and applies it. Unknown event
// types are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}

	entry := s.log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	switch event.Type {
	case payment.EventSessionCompleted, payment.EventAsyncPaymentSucceeded:
		_, err = s.ReconcileSession(ctx, event.Session)
	case payment.EventSessionExpired:
		_, err = s.ExpireSession(ctx, event.Session.SessionID)
	default:
		entry.Debug("ignoring webhook event")
		return nil
	}
	if err != nil {
		entry.WithError(err).Error("failed to apply webhook event")
		return err
	}
	entry.Info("webhook event applied")
	return nil
}

// ReconcileSession applies a completed session. It is safe to call any
// number of times for the same session; it reports whether anything changed.
func (s *Service) ReconcileSession(ctx context.Context, result *payment.SessionResult) (bool, error) {
	if result == nil || result.SessionID == "" {
		return false, fmt.Errorf("reconcile: missing session")
	}
	entry := s.log.WithFields(logrus.Fields{"session_id": result.SessionID, "payment_status": result.PaymentStatus})
	if !result.Paid() {
		entry.Info("session not paid yet, skipping reconciliation")
		return false, nil
	}

	userID := metadataUint(result.Metadata, "user_id")

	existing, err := s.Orders.FindBySessionID(ctx, result.SessionID)
	if errors.Is(err, order.ErrOrderNotFound) {
		recorded, err := s.recordUnknownSession(ctx, result, userID)
		if err != nil || !recorded {
			return recorded, err
		}
		return true, s.activateFromSession(ctx, result, userID)
	}
	if err != nil {
		return false, err
	}

	var changed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		changed, err = s.Orders.WithDB(tx).MarkPaid(ctx, result.SessionID, result.PaymentIntentID, result.Raw)
		if err != nil || !changed {
			return err
		}
		if existing.WeeklyBagID == nil {
			return nil
		}

		bags := s.Bags.WithDB(tx)
		if err := bags.ConfirmBag(ctx, *existing.WeeklyBagID, s.now()); err != nil {
			return err
		}
		_, err = bags.MarkAddonsPaid(ctx, *existing.WeeklyBagID, paidAddons(existing))
		return err
	})
	if err != nil {
		return false, err
	}
	if !changed {
		entry.Info("session already reconciled")
		return false, nil
	}

	if err := s.activateFromSession(ctx, result, userID); err != nil {
		return true, err
	}

	if existing.CheckoutMode == order.CheckoutModeSelection && existing.UserID != nil {
		if err := s.ClearSelection(ctx, *existing.UserID); err != nil {
			entry.WithError(err).Warn("failed to clear selection after payment")
		}
	}

	entry.WithField("order_number", existing.OrderNumber).Info("order paid")
	s.notify(ctx, result.SessionID)
	return true, nil
}

// recordUnknownSession keeps a record of a paid session that has no
// pending order, so no payment goes untracked
func (s *Service) recordUnknownSession(ctx context.Context, result *payment.SessionResult, userID uint) (bool, error) {
	now := s.now().UTC()
	o := &order.Order{
		OrderNumber:       result.Metadata["order_number"],
		WeekStartDate:     result.Metadata["week"],
		CheckoutMode:      modeFromMetadata(result),
		Status:            order.OrderStatusConfirmed,
		PaymentStatus:     order.PaymentStatusPaid,
		Contact:           order.Contact{Email: result.Email},
		BoxSize:           result.Metadata["box_size"],
		Subtotal:          result.AmountTotal,
		TotalAmount:       result.AmountTotal,
		Currency:          strings.ToUpper(result.Currency),
		ProviderSessionID: result.SessionID,
		PaymentIntentID:   result.PaymentIntentID,
		SessionSnapshot:   datatypes.JSON(result.Raw),
		PaidAt:            &now,
	}
	if userID != 0 {
		o.UserID = &userID
	}
	if bagID := metadataUint(result.Metadata, "weekly_bag_id"); bagID != 0 {
		o.WeeklyBagID = &bagID
	}

	if err := s.Orders.Create(ctx, o); err != nil {
		if existing, findErr := s.Orders.FindBySessionID(ctx, result.SessionID); findErr == nil && existing.IsPaid() {
			return false, nil
		}
		return false, err
	}

	s.log.WithFields(logrus.Fields{"session_id": result.SessionID, "order_number": o.OrderNumber}).
		Warn("recorded paid session with no pending order")
	return true, nil
}

// activateFromSession starts the subscription paid for by a
// subscription-mode session
func (s *Service) activateFromSession(ctx context.Context, result *payment.SessionResult, userID uint) error {
	if result.Mode != payment.ModeSubscription || userID == 0 {
		return nil
	}
	_, err := s.Subscriptions.Activate(ctx, subscription.ActivateRequest{
		UserID:                 userID,
		BoxSize:                result.Metadata["box_size"],
		ProviderSubscriptionID: result.SubscriptionID,
		ProviderCustomerID:     result.CustomerID,
	})
	return err
}

// ExpireSession cancels the pending order of an expired session
func (s *Service) ExpireSession(ctx context.Context, sessionID string) (bool, error) {
	changed, err := s.Orders.MarkExpired(ctx, sessionID)
	if errors.Is(err, order.ErrOrderNotFound) {
		return false, nil
	}
	return changed, err
}

func (s *Service) notify(ctx context.Context, sessionID string) {
	if s.Notifier == nil {
		return
	}
	o, err := s.Orders.FindBySessionID(ctx, sessionID)
	if err != nil {
		s.log.WithError(err).Warn("failed to load order for confirmation email")
		return
	}
	if err := s.Notifier.SendOrderConfirmation(ctx, o); err != nil {
		s.log.WithError(err).WithField("order_number", o.OrderNumber).Warn("failed to send order confirmation")
	}
}

func paidAddons(o *order.Order) []bag.PaidAddon {
	lines := o.AddonLines()
	paid := make([]bag.PaidAddon, 0, len(lines))
	for _, line := range lines {
		paid = append(paid, bag.PaidAddon{ItemID: *line.WeeklyBagItemID, Quantity: line.Quantity, Price: line.Price})
	}
	return paid
}

func modeFromMetadata(result *payment.SessionResult) order.CheckoutMode {
	switch mode := order.CheckoutMode(result.Metadata["checkout_mode"]); mode {
	case order.CheckoutModeBag, order.CheckoutModeSelection, order.CheckoutModeSubscription:
		return mode
	}
	if result.Mode == payment.ModeSubscription {
		return order.CheckoutModeSubscription
	}
	return order.CheckoutModeBag
}

func metadataUint(metadata map[string]string, key string) uint {
	v, err := strconv.ParseUint(metadata[key], 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
