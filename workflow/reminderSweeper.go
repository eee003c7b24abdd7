package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/sirupsen/logrus"
)

const reminderSweepLockKey = "lock:reminder-sweep"

// ReminderSweeper periodically reconciles the air-date reminders of every
// active user's deals. With redis configured only one instance sweeps at a
// time.
type ReminderSweeper struct {
	Logger    *logrus.Logger
	SweeperID string
	Interval  time.Duration
	LockTTL   time.Duration
}

type SweepResult struct {
	Owners    int `json:"owners"`
	Deals     int `json:"deals"`
	Reminders int `json:"reminders"`
	Failed    int `json:"failed"`
}

func NewReminderSweeper(logger *logrus.Logger, interval time.Duration) *ReminderSweeper {
	return &ReminderSweeper{
		Logger:    logger,
		SweeperID: uuid.NewString(),
		Interval:  interval,
		LockTTL:   5 * time.Minute,
	}
}

func (s *ReminderSweeper) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
		if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			config.LogError(s.Logger, "workflow", "ReminderSweeper.Run", "sweeping reminders", s.SweeperID, err)
		}
	}
}

// SweepOnce runs one reconciliation pass. It returns an empty result when
// another instance holds the sweep lock.
func (s *ReminderSweeper) SweepOnce(ctx context.Context) (*SweepResult, error) {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, reminderSweepLockKey, s.LockTTL, nil)
		if err == redislock.ErrNotObtained {
			s.Logger.WithFields(logrus.Fields{
				"field":     "ReminderSweeper",
				"sweeperId": s.SweeperID,
			}).Info("another instance is sweeping; skipping")
			return &SweepResult{}, nil
		}
		if err != nil {
			s.Logger.WithFields(logrus.Fields{
				"field":     "ReminderSweeper",
				"sweeperId": s.SweeperID,
			}).Warn("error obtaining redis lock; sweeping without lock: " + err.Error())
		} else {
			defer func() {
				if releaseErr := lock.Release(context.Background()); releaseErr != nil && releaseErr != redislock.ErrLockNotHeld {
					s.Logger.WithFields(logrus.Fields{"field": "ReminderSweeper"}).Warn("failed to release redis lock: " + releaseErr.Error())
				}
			}()
		}
	}

	started := time.Now()
	result, err := SweepReminders(ctx, s.Logger)
	if err != nil {
		return result, err
	}
	s.Logger.WithFields(logrus.Fields{
		"field":      "ReminderSweeper",
		"sweeperId":  s.SweeperID,
		"owners":     result.Owners,
		"deals":      result.Deals,
		"reminders":  result.Reminders,
		"failed":     result.Failed,
		"durationMs": time.Since(started).Milliseconds(),
	}).Info("reminder sweep finished")
	return result, nil
}

// SweepReminders upserts (or removes) the air-date reminder of every deal of
// every active user.
func SweepReminders(ctx context.Context, logger *logrus.Logger) (*SweepResult, error) {
	result := &SweepResult{}
	ownerIds, err := models.GetActiveUserIds(ctx)
	if err != nil {
		return result, err
	}
	for _, ownerId := range ownerIds {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		ownerCtx := utils.SetOwnerIdInContext(ctx, ownerId)
		deals, err := models.GetAllDeals(ownerCtx)
		if err != nil {
			return result, err
		}
		result.Owners++
		for _, deal := range deals {
			result.Deals++
			event, err := models.UpsertAirDateReminder(ownerCtx, deal)
			if err != nil {
				result.Failed++
				config.LogError(logger, "workflow", "SweepReminders", "upserting air date reminder", deal.ID, err)
				continue
			}
			if event != nil {
				result.Reminders++
			}
		}
	}
	return result, nil
}
