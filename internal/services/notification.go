package service

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/aaravmahajanofficial/storefront-checkout/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/events"
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	repository "github.com/aaravmahajanofficial/storefront-checkout/internal/repositories"
	"github.com/aaravmahajanofficial/storefront-checkout/pkg/sendgrid"
	"github.com/google/uuid"
)

type NotificationService interface {
	SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error)
	// NotifyOrderEvent emails the order's customer about event.
	NotifyOrderEvent(ctx context.Context, event events.Event) error
}

type notificationService struct {
	repo         repository.NotificationRepository
	userRepo     repository.UserRepository
	emailService sendgrid.EmailService
}

func NewNotificationService(repo repository.NotificationRepository, userRepo repository.UserRepository, emailService sendgrid.EmailService) NotificationService {
	return &notificationService{repo: repo, userRepo: userRepo, emailService: emailService}
}

// SendEmail records the notification, sends it and stores the outcome.
func (n *notificationService) SendEmail(ctx context.Context, req *models.EmailNotificationRequest) (*models.Notification, error) {
	notification := &models.Notification{
		ID:        uuid.New(),
		Type:      models.NotificationTypeEmail,
		Recipient: req.To,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    models.StatusPending,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification record: %w", err)
	}

	if err := n.emailService.Send(ctx, req); err != nil {
		notification.Status = models.StatusFailed
		notification.ErrorMessage = err.Error()

		_ = n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusFailed, notification.ErrorMessage)

		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	notification.Status = models.StatusSent

	if err := n.repo.UpdateNotificationStatus(ctx, notification.ID, models.StatusSent, ""); err != nil {
		return nil, fmt.Errorf("notification sent successfully but failed to update notification status: %w", err)
	}

	return notification, nil
}

// NotifyOrderEvent implements events.Notifier.
func (n *notificationService) NotifyOrderEvent(ctx context.Context, event events.Event) error {
	subject, body, ok := orderEmail(event)
	if !ok {
		return nil
	}

	user, err := n.userRepo.GetUserById(ctx, event.CustomerID)
	if err != nil {
		return fmt.Errorf("failed to resolve customer %s: %w", event.CustomerID, err)
	}

	_, err = n.SendEmail(ctx, &models.EmailNotificationRequest{
		To:          user.Email,
		Subject:     subject,
		Content:     body,
		HTMLContent: "<p>" + html.EscapeString(body) + "</p>",
		Metadata: map[string]string{
			"order_number": event.OrderNumber,
			"event_type":   string(event.Type),
			"event_id":     event.ID,
		},
	})
	if err != nil {
		return err
	}

	middleware.LoggerFromContext(ctx).Info("Order email sent",
		slog.String("orderNumber", event.OrderNumber),
		slog.String("eventType", string(event.Type)))

	return nil
}

func orderEmail(event events.Event) (string, string, bool) {
	amount := event.Total.StringFixed(2) + " " + strings.ToUpper(event.Currency)

	switch event.Type {
	case events.OrderCreated:
		return fmt.Sprintf("We received your order %s", event.OrderNumber),
			fmt.Sprintf("Your order %s for %s has been placed and is awaiting payment.", event.OrderNumber, amount), true
	case events.OrderPaid:
		return fmt.Sprintf("Payment confirmed for order %s", event.OrderNumber),
			fmt.Sprintf("We received your payment of %s for order %s. We will let you know when it ships.", amount, event.OrderNumber), true
	case events.OrderFailed:
		return fmt.Sprintf("Payment failed for order %s", event.OrderNumber),
			fmt.Sprintf("The payment for order %s did not go through. Your items have been released.", event.OrderNumber), true
	case events.OrderCancelled:
		return fmt.Sprintf("Order %s cancelled", event.OrderNumber),
			fmt.Sprintf("Your order %s has been cancelled.", event.OrderNumber), true
	case events.OrderRefunded:
		return fmt.Sprintf("Refund issued for order %s", event.OrderNumber),
			fmt.Sprintf("We refunded %s for order %s.", amount, event.OrderNumber), true
	case events.OrderFulfilled:
		body := fmt.Sprintf("Your order %s is on its way.", event.OrderNumber)
		if tracking := event.Metadata["tracking_number"]; tracking != "" {
			body += " Tracking number: " + tracking + "."
		}

		return fmt.Sprintf("Order %s shipped", event.OrderNumber), body, true
	}

	return "", "", false
}
