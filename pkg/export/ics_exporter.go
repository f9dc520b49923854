package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
)

// floatingLayout renders wall clock times without a zone so calendar
// clients show them in the viewer's local time.
const floatingLayout = "20060102T150405"

// CalendarEvent is one VEVENT of an exported calendar.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Cancelled   bool
}

// ICSExporter renders events as an iCalendar document.
type ICSExporter struct {
	productID string
	now       func() time.Time
}

// NewICSExporter creates an exporter stamping documents with productID.
func NewICSExporter(productID string) *ICSExporter {
	if productID == "" {
		productID = "-//campus-slot-api//EN"
	}
	return &ICSExporter{productID: productID, now: time.Now}
}

// Render encodes the events in order.
func (e *ICSExporter) Render(name string, events []CalendarEvent) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, e.productID)
	if name != "" {
		cal.Props.SetText("X-WR-CALNAME", name)
	}

	stamp := e.now().UTC()
	for _, event := range events {
		if event.UID == "" {
			return nil, fmt.Errorf("calendar event %q has no uid", event.Summary)
		}
		cal.Children = append(cal.Children, toVEvent(event, stamp))
	}

	buf := &bytes.Buffer{}
	if err := ical.NewEncoder(buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}

func toVEvent(event CalendarEvent, stamp time.Time) *ical.Component {
	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, event.UID)
	ve.Props.SetText(ical.PropSummary, event.Summary)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
	ve.Props.Set(floatingProp(ical.PropDateTimeStart, event.Start))
	ve.Props.Set(floatingProp(ical.PropDateTimeEnd, event.End))
	if event.Description != "" {
		ve.Props.SetText(ical.PropDescription, event.Description)
	}
	status := "CONFIRMED"
	if event.Cancelled {
		status = "CANCELLED"
	}
	ve.Props.SetText(ical.PropStatus, status)
	return ve
}

func floatingProp(name string, t time.Time) *ical.Prop {
	prop := ical.NewProp(name)
	prop.Value = t.Format(floatingLayout)
	return prop
}
