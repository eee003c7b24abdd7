package models

import (
	"context"
	"sort"
	"strings"

	"github.com/jonassync/licensing_backend/config"
	"github.com/jonassync/licensing_backend/utils"
	"github.com/shopspring/decimal"
)

type IncomeKind string

const (
	IncomeKindPublishing IncomeKind = "publishing"
	IncomeKindRecording  IncomeKind = "recording"
)

// IncomeEntry is one "mine" ownership entry of a deal snapshot.
type IncomeEntry struct {
	DealId              int              `json:"dealId"`
	EntryIndex          int              `json:"entryIndex"`
	ProjectName         string           `json:"projectName"`
	PartyName           string           `json:"partyName"`
	Counterparty        string           `json:"counterparty"`
	OwnershipPercentage decimal.Decimal  `json:"ownershipPercentage"`
	FullShareFee        decimal.Decimal  `json:"fullShareFee"`
	JonasShare          *decimal.Decimal `json:"jonasShare"`
	PaymentDate         *MyDate          `json:"paymentDate"`
}

type IncomeReport struct {
	Publishing      []IncomeEntry   `json:"publishing"`
	Recording       []IncomeEntry   `json:"recording"`
	PublishingTotal decimal.Decimal `json:"publishingTotal"`
	RecordingTotal  decimal.Decimal `json:"recordingTotal"`
}

// IncomeEntryInput edits the income tracking of one snapshot entry. An
// empty string clears the value.
type IncomeEntryInput struct {
	JonasShare  *string `json:"jonasShare"`
	PaymentDate *string `json:"paymentDate"`
}

// BuildIncomeReport lists every isMine entry of the deals' snapshots, in deal
// id order. Totals add up jonasShare only; entries without one count as 0.
func BuildIncomeReport(deals []*Deal) IncomeReport {
	ordered := make([]*Deal, len(deals))
	copy(ordered, deals)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	report := IncomeReport{
		Publishing:      []IncomeEntry{},
		Recording:       []IncomeEntry{},
		PublishingTotal: decimal.Zero,
		RecordingTotal:  decimal.Zero,
	}
	for _, deal := range ordered {
		for i, e := range deal.ComposerPublishers {
			if !e.IsMine {
				continue
			}
			report.Publishing = append(report.Publishing, *incomeEntryOf(deal, IncomeKindPublishing, i))
			if e.JonasShare != nil {
				report.PublishingTotal = report.PublishingTotal.Add(*e.JonasShare)
			}
		}
		for i, e := range deal.ArtistLabels {
			if !e.IsMine {
				continue
			}
			report.Recording = append(report.Recording, *incomeEntryOf(deal, IncomeKindRecording, i))
			if e.JonasShare != nil {
				report.RecordingTotal = report.RecordingTotal.Add(*e.JonasShare)
			}
		}
	}
	return report
}

func GetIncomeReport(ctx context.Context) (*IncomeReport, error) {
	deals, err := GetAllDeals(ctx)
	if err != nil {
		return nil, err
	}
	report := BuildIncomeReport(deals)
	return &report, nil
}

func parseIncomeInput(input *IncomeEntryInput) (share **decimal.Decimal, date **MyDate, err error) {
	verr := &ValidationError{}
	if input.JonasShare != nil {
		var v *decimal.Decimal
		if strings.TrimSpace(*input.JonasShare) != "" {
			d, perr := utils.ParseMoney(*input.JonasShare)
			if perr != nil {
				verr.Add("jonasShare", "must be an amount")
			} else if d.IsNegative() {
				verr.Add("jonasShare", "must not be negative")
			} else {
				d = d.Round(2)
				v = &d
			}
		}
		share = &v
	}
	if input.PaymentDate != nil {
		var v *MyDate
		if strings.TrimSpace(*input.PaymentDate) != "" {
			d, perr := ParseMyDate(*input.PaymentDate)
			if perr != nil {
				verr.Add("paymentDate", "must be a date in YYYY-MM-DD format")
			} else {
				v = &d
			}
		}
		date = &v
	}
	return share, date, verr.Err()
}

// UpdateIncomeEntry sets jonasShare / paymentDate on one isMine snapshot entry
// of a deal and returns the updated entry. Other entries are not income rows
// and report ErrorRecordNotFound.
func UpdateIncomeEntry(ctx context.Context, dealId int, kind IncomeKind, index int, input *IncomeEntryInput) (*IncomeEntry, error) {
	ownerId, err := utils.RequireOwnerId(ctx)
	if err != nil {
		return nil, err
	}
	share, date, err := parseIncomeInput(input)
	if err != nil {
		return nil, err
	}
	deal, err := utils.FetchModel[Deal](ctx, ownerId, dealId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	switch kind {
	case IncomeKindPublishing:
		if index < 0 || index >= len(deal.ComposerPublishers) || !deal.ComposerPublishers[index].IsMine {
			return nil, utils.ErrorRecordNotFound
		}
		entries := append([]ComposerPublisher(nil), deal.ComposerPublishers...)
		if share != nil {
			entries[index].JonasShare = *share
		}
		if date != nil {
			entries[index].PaymentDate = *date
		}
		deal.ComposerPublishers = entries
		if err := db.WithContext(ctx).Model(deal).Update("composer_publishers", deal.ComposerPublishers).Error; err != nil {
			return nil, err
		}
	case IncomeKindRecording:
		if index < 0 || index >= len(deal.ArtistLabels) || !deal.ArtistLabels[index].IsMine {
			return nil, utils.ErrorRecordNotFound
		}
		entries := append([]ArtistLabel(nil), deal.ArtistLabels...)
		if share != nil {
			entries[index].JonasShare = *share
		}
		if date != nil {
			entries[index].PaymentDate = *date
		}
		deal.ArtistLabels = entries
		if err := db.WithContext(ctx).Model(deal).Update("artist_labels", deal.ArtistLabels).Error; err != nil {
			return nil, err
		}
	default:
		return nil, fieldError("kind", "must be publishing or recording")
	}

	return incomeEntryOf(deal, kind, index), nil
}

func incomeEntryOf(deal *Deal, kind IncomeKind, index int) *IncomeEntry {
	if kind == IncomeKindRecording {
		e := deal.ArtistLabels[index]
		return &IncomeEntry{
			DealId:              deal.ID,
			EntryIndex:          index,
			ProjectName:         deal.ProjectName,
			PartyName:           e.Artist,
			Counterparty:        e.Label,
			OwnershipPercentage: e.LabelOwnership,
			FullShareFee:        OwnershipShare(deal.FullRecordingFee, e.LabelOwnership),
			JonasShare:          e.JonasShare,
			PaymentDate:         e.PaymentDate,
		}
	}
	e := deal.ComposerPublishers[index]
	return &IncomeEntry{
		DealId:              deal.ID,
		EntryIndex:          index,
		ProjectName:         deal.ProjectName,
		PartyName:           e.Composer,
		Counterparty:        e.Publisher,
		OwnershipPercentage: e.PublishingOwnership,
		FullShareFee:        OwnershipShare(deal.FullSongValue, e.PublishingOwnership),
		JonasShare:          e.JonasShare,
		PaymentDate:         e.PaymentDate,
	}
}
