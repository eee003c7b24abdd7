package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type PitchStatus string

const (
	PitchStatusPending    PitchStatus = "pending"
	PitchStatusResponded  PitchStatus = "responded"
	PitchStatusNoResponse PitchStatus = "no_response"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	// derived only, never stored
	PaymentStatusOverdue PaymentStatus = "overdue"
)

type TemplateType string

const (
	TemplateTypeContract TemplateType = "contract"
	TemplateTypeEmail    TemplateType = "email"
	TemplateTypePitch    TemplateType = "pitch"
)

type CalendarEventType string

const (
	CalendarEventMeeting    CalendarEventType = "meeting"
	CalendarEventDeadline   CalendarEventType = "deadline"
	CalendarEventAirDate    CalendarEventType = "air_date"
	CalendarEventFollowUp   CalendarEventType = "follow_up"
	CalendarEventPaymentDue CalendarEventType = "payment_due"
	CalendarEventOther      CalendarEventType = "other"
)

// entity types used by polymorphic references (calendar events, attachments)
const (
	EntityTypeSong    = "song"
	EntityTypeContact = "contact"
	EntityTypeDeal    = "deal"
	EntityTypePitch   = "pitch"
	EntityTypePayment = "payment"
)

type ProjectType string

const (
	ProjectTypeFilm        ProjectType = "film"
	ProjectTypeTV          ProjectType = "tv"
	ProjectTypeAdvertising ProjectType = "advertising"
	ProjectTypeTrailer     ProjectType = "trailer"
	ProjectTypeGame        ProjectType = "game"
	ProjectTypeOther       ProjectType = "other"
)

type AutomationTrigger string

const (
	TriggerDealStatusChanged AutomationTrigger = "deal_status_changed"
)

type AutomationAction string

const (
	ActionCreateCalendarEvent AutomationAction = "create_calendar_event"
	ActionCreatePayment       AutomationAction = "create_payment"
)

type SearchEntity string

const (
	SearchEntitySongs    SearchEntity = "songs"
	SearchEntityDeals    SearchEntity = "deals"
	SearchEntityContacts SearchEntity = "contacts"
)

func (s PitchStatus) IsValid() bool {
	switch s {
	case PitchStatusPending, PitchStatusResponded, PitchStatusNoResponse:
		return true
	}
	return false
}

// IsValid reports whether s may be stored; overdue is derived.
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s == PaymentStatusPaid
}

func (t TemplateType) IsValid() bool {
	switch t {
	case TemplateTypeContract, TemplateTypeEmail, TemplateTypePitch:
		return true
	}
	return false
}

func (t CalendarEventType) IsValid() bool {
	switch t {
	case CalendarEventMeeting, CalendarEventDeadline, CalendarEventAirDate,
		CalendarEventFollowUp, CalendarEventPaymentDue, CalendarEventOther:
		return true
	}
	return false
}

func IsValidEntityType(entityType string) bool {
	switch entityType {
	case EntityTypeSong, EntityTypeContact, EntityTypeDeal, EntityTypePitch, EntityTypePayment:
		return true
	}
	return false
}

func (t ProjectType) IsValid() bool {
	switch t {
	case ProjectTypeFilm, ProjectTypeTV, ProjectTypeAdvertising, ProjectTypeTrailer, ProjectTypeGame, ProjectTypeOther:
		return true
	}
	return false
}

func (t AutomationTrigger) IsValid() bool {
	return t == TriggerDealStatusChanged
}

func (a AutomationAction) IsValid() bool {
	return a == ActionCreateCalendarEvent || a == ActionCreatePayment
}

func (e SearchEntity) IsValid() bool {
	switch e {
	case SearchEntitySongs, SearchEntityDeals, SearchEntityContacts:
		return true
	}
	return false
}

// MyDate is a calendar date without time of day, "YYYY-MM-DD" on the wire.
type MyDate time.Time

// AppLocation is the zone "today" is evaluated in (APP_TIMEZONE, default UTC).
func AppLocation() *time.Location {
	name := strings.TrimSpace(os.Getenv("APP_TIMEZONE"))
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewMyDate truncates t to its calendar day in the app zone.
func NewMyDate(t time.Time) MyDate {
	local := t.In(AppLocation())
	return MyDate(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC))
}

func Today() MyDate {
	return NewMyDate(time.Now())
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func ParseMyDate(s string) (MyDate, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		// full timestamps from clients keep their date part
		for _, layout := range dateTimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return MyDate(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)), nil
			}
		}
		return MyDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return MyDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return MyDate(t), nil
}

func (d MyDate) Time() time.Time {
	return time.Time(d)
}

func (d MyDate) String() string {
	return time.Time(d).Format(dateLayout)
}

func (d MyDate) AddDays(n int) MyDate {
	return MyDate(time.Time(d).AddDate(0, 0, n))
}

func (d MyDate) Before(other MyDate) bool {
	return time.Time(d).Before(time.Time(other))
}

func (d MyDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *MyDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("date must be a string")
	}
	parsed, err := ParseMyDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (MyDate) GormDataType() string {
	return "date"
}

func (d MyDate) Value() (driver.Value, error) {
	return time.Time(d), nil
}

func (d *MyDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case time.Time:
		*d = MyDate(time.Date(v.Year(), v.Month(), v.Day(), 0, 0, 0, 0, time.UTC))
		return nil
	case string:
		parsed, err := ParseMyDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseMyDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		*d = MyDate{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into MyDate", value)
	}
}

// DatePtr is shorthand for optional dates in tests and fixtures.
func DatePtr(d MyDate) *MyDate {
	return &d
}
