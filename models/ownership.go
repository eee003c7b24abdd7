package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultOwnershipPercent is assumed when neither structured ownership nor
// a recognisable percentage in the splits text is available.
const DefaultOwnershipPercent = 50

var hundred = decimal.NewFromInt(100)

func init() {
	// money and percentages go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// ComposerPublisher is one publishing ownership entry of a song (and of a
// deal's snapshot). JonasShare and PaymentDate are only tracked on deals.
type ComposerPublisher struct {
	Composer            string           `json:"composer"`
	Publisher           string           `json:"publisher"`
	PublishingOwnership decimal.Decimal  `json:"publishingOwnership"`
	IsMine              bool             `json:"isMine"`
	JonasShare          *decimal.Decimal `json:"jonasShare,omitempty"`
	PaymentDate         *MyDate          `json:"paymentDate,omitempty"`
}

// ArtistLabel is the recording counterpart of ComposerPublisher.
type ArtistLabel struct {
	Artist         string           `json:"artist"`
	Label          string           `json:"label"`
	LabelOwnership decimal.Decimal  `json:"labelOwnership"`
	IsMine         bool             `json:"isMine"`
	JonasShare     *decimal.Decimal `json:"jonasShare,omitempty"`
	PaymentDate    *MyDate          `json:"paymentDate,omitempty"`
}

type ownershipEntry interface {
	ownership() decimal.Decimal
	mine() bool
}

func (e ComposerPublisher) ownership() decimal.Decimal { return e.PublishingOwnership }
func (e ComposerPublisher) mine() bool { return e.IsMine }
func (e ArtistLabel) ownership() decimal.Decimal { return e.LabelOwnership }
func (e ArtistLabel) mine() bool { return e.IsMine }

// OwnershipShare is fee × percent / 100 rounded to cents.
func OwnershipShare(fee, percent decimal.Decimal) decimal.Decimal {
	return fee.Mul(percent).Div(hundred).Round(2)
}

// MinePercent sums the ownership of entries flagged as ours. The sum is not
// capped at 100.
func MinePercent[E ownershipEntry](entries []E) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.mine() {
			total = total.Add(e.ownership())
		}
	}
	return total
}

// ordered, first match wins
var splitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bour(?:s|\s+share|\s+split)?\s*[:=\-]?\s*(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)\bwe\s*(?:own|have|get|receive)?\s*[:=\-]?\s*(\d+(?:\.\d+)?)\s*%`),
	regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s*(?:is\s+|to\s+)?(?:ours|our|us)\b`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`),
}

// ParseSplitsPercent extracts our ownership percentage from a free-text
// splits description such as "Our: 60% / Their: 40%". Text without any
// percentage yields DefaultOwnershipPercent.
func ParseSplitsPercent(splits string) decimal.Decimal {
	splits = strings.TrimSpace(splits)
	if splits != "" {
		for _, re := range splitPatterns {
			m := re.FindStringSubmatch(splits)
			if len(m) < 2 {
				continue
			}
			if p, err := decimal.NewFromString(m[1]); err == nil {
				return p
			}
		}
	}
	return decimal.NewFromInt(DefaultOwnershipPercent)
}

// OurPercent is the ownership applied to a full fee: the structured entries
// when there are any, the splits text otherwise.
func OurPercent[E ownershipEntry](entries []E, splits string) decimal.Decimal {
	if len(entries) > 0 {
		return MinePercent(entries)
	}
	return ParseSplitsPercent(splits)
}

// PublishingFee derives ourFee from fullSongValue.
func PublishingFee(fullSongValue decimal.Decimal, entries []ComposerPublisher, splits string) decimal.Decimal {
	return OwnershipShare(fullSongValue, OurPercent(entries, splits))
}

// RecordingFee derives ourRecordingFee from fullRecordingFee.
func RecordingFee(fullRecordingFee decimal.Decimal, entries []ArtistLabel, splits string) decimal.Decimal {
	return OwnershipShare(fullRecordingFee, OurPercent(entries, splits))
}

func normalizeComposerPublishers(entries []ComposerPublisher) []ComposerPublisher {
	out := make([]ComposerPublisher, 0, len(entries))
	for _, e := range entries {
		e.Composer = strings.TrimSpace(e.Composer)
		e.Publisher = strings.TrimSpace(e.Publisher)
		if e.Composer == "" && e.Publisher == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func normalizeArtistLabels(entries []ArtistLabel) []ArtistLabel {
	out := make([]ArtistLabel, 0, len(entries))
	for _, e := range entries {
		e.Artist = strings.TrimSpace(e.Artist)
		e.Label = strings.TrimSpace(e.Label)
		if e.Artist == "" && e.Label == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

func validateOwnership(verr *ValidationError, field string, percents []decimal.Decimal) {
	for _, p := range percents {
		if p.IsNegative() || p.GreaterThan(hundred) {
			verr.Add(field, "ownership percentages must be between 0 and 100")
			return
		}
	}
}

func composerPercents(entries []ComposerPublisher) []decimal.Decimal {
	out := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		out[i] = e.PublishingOwnership
	}
	return out
}

func artistPercents(entries []ArtistLabel) []decimal.Decimal {
	out := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		out[i] = e.LabelOwnership
	}
	return out
}
