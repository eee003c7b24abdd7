package reports

import (
	"context"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/models"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
)

type PipelineRow struct {
	Status          models.DealStatus `json:"status"`
	Label           string            `json:"label"`
	Count           int64             `json:"count"`
	FullSongValue   decimal.Decimal   `json:"fullSongValue"`
	OurFee          decimal.Decimal   `json:"ourFee"`
	OurRecordingFee decimal.Decimal   `json:"ourRecordingFee"`
}

type pipelineRecord struct {
	Status          string
	DealCount       int64
	FullSongValue   decimal.Decimal
	OurFee          decimal.Decimal
	OurRecordingFee decimal.Decimal
}

// GetDealPipeline returns one row per lifecycle status, in lifecycle order,
// including statuses without deals.
func GetDealPipeline(ctx context.Context) ([]*PipelineRow, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	return cachedReport(ctx, ownerId, reportPipeline, func() ([]*PipelineRow, error) {
		return buildDealPipeline(ctx, ownerId)
	})
}

func buildDealPipeline(ctx context.Context, ownerId int) ([]*PipelineRow, error) {
	sql := `
SELECT
    status,
    COUNT(*) AS deal_count,
    COALESCE(SUM(full_song_value), 0) AS full_song_value,
    COALESCE(SUM(our_fee), 0) AS our_fee,
    COALESCE(SUM(our_recording_fee), 0) AS our_recording_fee
FROM
    deals
WHERE
    owner_id = ?
GROUP BY
    status
`
	var records []*pipelineRecord
	db := config.GetDB()
	if err := db.WithContext(ctx).Raw(sql, ownerId).Scan(&records).Error; err != nil {
		return nil, err
	}

	byStatus := make(map[models.DealStatus]*pipelineRecord, len(records))
	for _, r := range records {
		byStatus[models.DealStatus(r.Status)] = r
	}
	statuses := models.DealStatuses()
	rows := make([]*PipelineRow, len(statuses))
	for i, status := range statuses {
		row := &PipelineRow{
			Status:          status,
			Label:           status.Label(),
			FullSongValue:   decimal.Zero,
			OurFee:          decimal.Zero,
			OurRecordingFee: decimal.Zero,
		}
		if r, ok := byStatus[status]; ok {
			row.Count = r.DealCount
			row.FullSongValue = r.FullSongValue
			row.OurFee = r.OurFee
			row.OurRecordingFee = r.OurRecordingFee
		}
		rows[i] = row
	}
	return rows, nil
}
