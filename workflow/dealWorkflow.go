package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/models/reports"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
)

// AfterDealSaved runs the side effects of a deal write: status history,
// lifecycle event, automations, the air-date reminder and report cache
// invalidation. previous is empty for a new deal. Failures are logged, the
// deal itself is already stored.
func AfterDealSaved(ctx context.Context, deal *models.Deal, previous models.DealStatus, created bool) {
	afterDealSavedAt(ctx, deal, previous, created, time.Now())
}

func afterDealSavedAt(ctx context.Context, deal *models.Deal, previous models.DealStatus, created bool, now time.Time) {
	logger := config.GetLogger()

	if created || previous != deal.Status {
		from := previous
		if created {
			from = ""
		}
		if _, err := models.CreateDealHistory(ctx, deal, from); err != nil {
			config.LogError(logger, "workflow", "AfterDealSaved", "writing deal history", deal.ID, err)
		}
		publishDealEvent(ctx, deal, from, created)
		if config.WorkflowAutomationsEnabled() {
			if _, err := RunAutomations(ctx, deal, now); err != nil {
				config.LogError(logger, "workflow", "AfterDealSaved", "running automations", deal.ID, err)
			}
		}
	}

	if _, err := models.UpsertAirDateReminder(ctx, deal); err != nil {
		config.LogError(logger, "workflow", "AfterDealSaved", "upserting air date reminder", deal.ID, err)
	}
	if err := reports.InvalidateReports(ctx, deal.OwnerId); err != nil {
		config.LogError(logger, "workflow", "AfterDealSaved", "invalidating reports", deal.OwnerId, err)
	}
}

// AfterDealDeleted removes the deal's generated reminders and publishes the
// deletion. Pitches and payments that point at the deal are left as they are.
func AfterDealDeleted(ctx context.Context, deal *models.Deal) {
	logger := config.GetLogger()
	if err := models.DeleteEntityEvents(ctx, deal.OwnerId, models.EntityTypeDeal, deal.ID); err != nil {
		config.LogError(logger, "workflow", "AfterDealDeleted", "deleting generated events", deal.ID, err)
	}
	if _, err := config.PublishDealEvent(ctx, dealEventMessage(ctx, deal, config.DealEventDeleted, "")); err != nil {
		config.LogError(logger, "workflow", "AfterDealDeleted", "publishing deal event", deal.ID, err)
	}
	if err := reports.InvalidateReports(ctx, deal.OwnerId); err != nil {
		config.LogError(logger, "workflow", "AfterDealDeleted", "invalidating reports", deal.OwnerId, err)
	}
}

// AfterPaymentSaved keeps the summary report in line with payment writes.
func AfterPaymentSaved(ctx context.Context, payment *models.Payment) {
	if err := reports.InvalidateReports(ctx, payment.OwnerId); err != nil {
		config.LogError(config.GetLogger(), "workflow", "AfterPaymentSaved", "invalidating reports", payment.OwnerId, err)
	}
}

func dealEventMessage(ctx context.Context, deal *models.Deal, eventType string, from models.DealStatus) config.DealEventMessage {
	msg := config.DealEventMessage{
		EventType:   eventType,
		OwnerId:     deal.OwnerId,
		DealId:      deal.ID,
		ProjectName: deal.ProjectName,
		FromStatus:  string(from),
		ToStatus:    string(deal.Status),
		OccurredAt:  time.Now().UTC(),
	}
	msg.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	return msg
}

func publishDealEvent(ctx context.Context, deal *models.Deal, from models.DealStatus, created bool) {
	eventType := config.DealEventStatusChanged
	if created {
		eventType = config.DealEventCreated
	}
	msgId, err := config.PublishDealEvent(ctx, dealEventMessage(ctx, deal, eventType, from))
	if err != nil {
		config.LogError(config.GetLogger(), "workflow", "publishDealEvent", "publishing deal event", deal.ID, err)
		return
	}
	if msgId != "" {
		config.GetLogger().WithFields(logrus.Fields{
			"field":     "pubsub",
			"dealId":    deal.ID,
			"eventType": eventType,
			"messageId": msgId,
		}).Debug("deal event published")
	}
}

// RunAutomations executes the owner's active automations triggered by the
// deal's current status and returns how many ran. Each automation runs on
// its own; failures are joined into the returned error.
func RunAutomations(ctx context.Context, deal *models.Deal, now time.Time) (int, error) {
	automations, err := models.GetActiveAutomationsFor(ctx, deal.OwnerId, deal.Status)
	if err != nil {
		return 0, err
	}

	ran := 0
	var errs []error
	for _, automation := range automations {
		if err := runAutomation(ctx, automation, deal, now); err != nil {
			errs = append(errs, fmt.Errorf("automation %d (%s): %w", automation.ID, automation.Action, err))
			continue
		}
		ran++
	}
	return ran, errors.Join(errs...)
}

func runAutomation(ctx context.Context, automation *models.WorkflowAutomation, deal *models.Deal, now time.Time) error {
	dueDate := models.NewMyDate(now).AddDays(automation.OffsetDays).String()
	dealId := deal.ID

	switch automation.Action {
	case models.ActionCreateCalendarEvent:
		title := fmt.Sprintf("Follow up: %s (%s)", deal.ProjectName, deal.Status.Label())
		description := automation.Name
		eventType := string(models.CalendarEventFollowUp)
		entityType := models.EntityTypeDeal
		allDay := true
		_, err := models.CreateCalendarEvent(ctx, &models.NewCalendarEvent{
			Title:       &title,
			Description: &description,
			StartDate:   &dueDate,
			AllDay:      &allDay,
			EventType:   &eventType,
			EntityType:  &entityType,
			EntityId:    &dealId,
		})
		return err
	case models.ActionCreatePayment:
		amount := deal.OurFee.Add(deal.OurRecordingFee)
		status := string(models.PaymentStatusPending)
		description := fmt.Sprintf("%s: %s", automation.Name, deal.ProjectName)
		payment, err := models.CreatePayment(ctx, &models.NewPayment{
			DealId:      &dealId,
			Amount:      &amount,
			DueDate:     &dueDate,
			Status:      &status,
			Description: &description,
		})
		if err != nil {
			return err
		}
		AfterPaymentSaved(ctx, payment)
		return nil
	default:
		return fmt.Errorf("unknown action %q", automation.Action)
	}
}
