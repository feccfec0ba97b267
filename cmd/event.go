package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/gym-storefront/internal/core/events"
	"github.com/frahmantamala/gym-storefront/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Manage events: publish test events through the checkout handlers`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test event",
	Long:  `Publish a test event to the event bus for testing and debugging`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var eventData string

// subscribeHandlers attaches the operational handlers of checkout events.
func subscribeHandlers(bus *events.EventBus, lg *slog.Logger) {
	bus.Subscribe(events.EventTypeMembershipActivated, func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.MembershipActivatedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event)
		}
		lg.Info("membership activated",
			"event_id", e.EventID(),
			"membership_id", e.MembershipID,
			"sale_id", e.SaleID,
			"plan_code", e.PlanCode,
			"amount", e.Amount,
			"ends_at", e.EndsAt)
		return nil
	})

	bus.Subscribe(events.EventTypePaymentFailed, func(ctx context.Context, event events.Event) error {
		e, ok := event.(*events.PaymentFailedEvent)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event)
		}
		lg.Warn("checkout payment failed",
			"event_id", e.EventID(),
			"session_id", e.SessionID,
			"phase", e.Phase,
			"error_kind", e.ErrorKind,
			"error_code", e.ErrorCode)
		return nil
	})

	bus.Subscribe(events.EventTypeSessionExpired, func(ctx context.Context, event events.Event) error {
		lg.Info("checkout sessions expired", "event_id", event.EventID(), "payload", event.Payload())
		return nil
	})
}

func publishTestEvent(eventType string) {
	logger := logger.LoggerWrapper()

	eventBus := events.NewEventBus(logger)
	subscribeHandlers(eventBus, logger)

	var event events.Event
	switch eventType {
	case events.EventTypeMembershipActivated:
		event = events.NewMembershipActivatedEvent(0, 0, 0, 0, 0, eventData, 0, "MXN", time.Now())
	case events.EventTypePaymentFailed:
		event = events.NewPaymentFailedEvent(0, "", "cli", 0, "test", "", eventData)
	case events.EventTypeSessionExpired:
		event = events.NewSessionExpiredEvent(1)
	default:
		event = events.BaseEvent{
			ID:        fmt.Sprintf("test-%d", time.Now().Unix()),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"message": eventData,
				"source":  "cli-command",
			},
		}
	}

	logger.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		logger.Error("failed to publish event", "error", err)
		return
	}
	logger.Info("test event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "test message", "Event data message")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
