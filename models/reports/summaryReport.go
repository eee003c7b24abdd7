package reports

import (
	"context"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
)

type SummaryResponse struct {
	DealCount         int64                        `json:"dealCount"`
	ActiveDeals       int64                        `json:"activeDeals"`
	TotalOurFees      decimal.Decimal              `json:"totalOurFees"`
	PaidAmount        decimal.Decimal              `json:"paidAmount"`
	OutstandingAmount decimal.Decimal              `json:"outstandingAmount"`
	OverdueCount      int                          `json:"overdueCount"`
	PitchesByStatus   map[models.PitchStatus]int64 `json:"pitchesByStatus"`
}

type dealTotals struct {
	DealCount    int64
	ActiveDeals  int64
	TotalOurFees decimal.Decimal
}

type paymentTotals struct {
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
}

type pitchCount struct {
	Status     string
	PitchCount int64
}

func GetSummary(ctx context.Context) (*SummaryResponse, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, ownerId, reportSummary, func() (*SummaryResponse, error) {
		return buildSummary(ctx, ownerId)
	})
}

func buildSummary(ctx context.Context, ownerId int) (*SummaryResponse, error) {
	db := config.GetDB()

	var deals dealTotals
	dealSql := `
SELECT
    COUNT(*) AS deal_count,
    COALESCE(SUM(CASE WHEN status <> ? THEN 1 ELSE 0 END), 0) AS active_deals,
    COALESCE(SUM(our_fee + our_recording_fee), 0) AS total_our_fees
FROM
    deals
WHERE
    owner_id = ?
`
	if err := db.WithContext(ctx).Raw(dealSql, models.DealStatusCompleted, ownerId).Scan(&deals).Error; err != nil {
		return nil, err
	}

	var payments paymentTotals
	paymentSql := `
SELECT
    COALESCE(SUM(CASE WHEN status = ? THEN amount ELSE 0 END), 0) AS paid_amount,
    COALESCE(SUM(CASE WHEN status <> ? THEN amount ELSE 0 END), 0) AS outstanding_amount
FROM
    payments
WHERE
    owner_id = ?
`
	if err := db.WithContext(ctx).Raw(paymentSql, models.PaymentStatusPaid, models.PaymentStatusPaid, ownerId).Scan(&payments).Error; err != nil {
		return nil, err
	}

	// overdue is derived per payment, so count it the same way the API does
	overdue, err := models.GetPayments(ctx, models.PaymentFilter{Status: models.PaymentStatusOverdue})
	if err != nil {
		return nil, err
	}

	var pitches []*pitchCount
	pitchSql := `
SELECT
    status,
    COUNT(*) AS pitch_count
FROM
    pitches
WHERE
    owner_id = ?
GROUP BY
    status
`
	if err := db.WithContext(ctx).Raw(pitchSql, ownerId).Scan(&pitches).Error; err != nil {
		return nil, err
	}
	byStatus := map[models.PitchStatus]int64{
		models.PitchStatusPending:    0,
		models.PitchStatusResponded:  0,
		models.PitchStatusNoResponse: 0,
	}
	for _, p := range pitches {
		byStatus[models.PitchStatus(p.Status)] = p.PitchCount
	}

	return &SummaryResponse{
		DealCount:         deals.DealCount,
		ActiveDeals:       deals.ActiveDeals,
		TotalOurFees:      deals.TotalOurFees.Round(2),
		PaidAmount:        payments.PaidAmount.Round(2),
		OutstandingAmount: payments.OutstandingAmount.Round(2),
		OverdueCount:      len(overdue),
		PitchesByStatus:   byStatus,
	}, nil
}
