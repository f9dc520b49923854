package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-slot-api/internal/dto"
	"github.com/noah-isme/campus-slot-api/internal/models"
	appErrors "github.com/noah-isme/campus-slot-api/pkg/errors"
	"github.com/noah-isme/campus-slot-api/pkg/export"
)

type slotSource interface {
	ListAllocatable(ctx context.Context, campusID int64, on *models.Date) (*dto.AllocatableSlots, error)
	ListAllocatableFrom(ctx context.Context, campusID int64, cutoff string, on *models.Date) (*dto.AllocatableSlots, error)
	CampusDay(ctx context.Context, campusID int64, on *models.Date) ([]dto.SlotAvailability, models.Date, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.CalendarEvent) ([]byte, error)
}

// slotEventNamespace scopes calendar UIDs so they stay stable across exports.
var slotEventNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("slots.campus-slot-api"))

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	// Location places slot wall clock times on the calendar. Defaults to time.Local.
	Location *time.Location
}

// ExportResult is a rendered document ready to be served.
type ExportResult struct {
	Filename    string
	ContentType string
	Format      export.Format
	Body        []byte
}

// ExportService renders slot listings as CSV, PDF or iCalendar documents.
type ExportService struct {
	slots  slotSource
	csv    csvRenderer
	pdf    pdfRenderer
	ics    icsRenderer
	logger *zap.Logger
	cfg    ExportConfig
}

// NewExportService constructs an ExportService. Nil renderers get defaults.
func NewExportService(slots slotSource, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("campus-slot-api")
	}
	if ics == nil {
		ics = export.NewICSExporter("")
	}
	return &ExportService{slots: slots, csv: csv, pdf: pdf, ics: ics, logger: logger, cfg: cfg}
}

// AllocatableReport renders the allocatable slots of a campus. A non-empty
// cutoff restricts the listing to slots ending after it.
func (s *ExportService) AllocatableReport(ctx context.Context, campusID int64, format export.Format, cutoff string, on *models.Date) (*ExportResult, error) {
	var (
		listing *dto.AllocatableSlots
		err     error
	)
	if cutoff != "" {
		listing, err = s.slots.ListAllocatableFrom(ctx, campusID, cutoff, on)
	} else {
		listing, err = s.slots.ListAllocatable(ctx, campusID, on)
	}
	if err != nil {
		return nil, err
	}

	dataset := buildAllocatableDataset(listing)
	var body []byte
	switch format {
	case export.FormatCSV:
		body, err = s.csv.Render(dataset)
	case export.FormatPDF:
		body, err = s.pdf.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		s.logger.Error("render slot export failed", zap.Int64("campus_id", campusID), zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render export")
	}

	name := fmt.Sprintf("allocatable_slots_campus%d_%s", campusID, listing.ReferenceDate)
	if listing.From != "" {
		name += "_from" + sanitizeFilename(listing.From)
	}
	return &ExportResult{
		Filename:    name + "." + string(format),
		ContentType: format.ContentType(),
		Format:      format,
		Body:        body,
	}, nil
}

// Calendar renders every Valid slot of a campus on the reference date as a
// VEVENT. Slots that are not allocatable that day are marked cancelled.
func (s *ExportService) Calendar(ctx context.Context, campusID int64, on *models.Date) (*ExportResult, error) {
	day, ref, err := s.slots.CampusDay(ctx, campusID, on)
	if err != nil {
		return nil, err
	}

	events := make([]export.CalendarEvent, 0, len(day))
	for _, item := range day {
		event, err := s.slotEvent(item.Slot, ref, item.Allocatable)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to build calendar")
		}
		events = append(events, event)
	}

	body, err := s.ics.Render(fmt.Sprintf("Campus %d slots", campusID), events)
	if err != nil {
		s.logger.Error("render slot calendar failed", zap.Int64("campus_id", campusID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to render calendar")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("campus%d_%s.ics", campusID, ref),
		ContentType: export.FormatICS.ContentType(),
		Format:      export.FormatICS,
		Body:        body,
	}, nil
}

func (s *ExportService) slotEvent(slot models.Slot, ref models.Date, allocatable bool) (export.CalendarEvent, error) {
	midnight := ref.In(s.cfg.Location)
	start, err := clockOffset(slot.StartTime)
	if err != nil {
		return export.CalendarEvent{}, err
	}
	end, err := clockOffset(slot.EndTime)
	if err != nil {
		return export.CalendarEvent{}, err
	}
	if end <= start {
		end += 24 * time.Hour
	}

	description := "allocatable"
	if !allocatable {
		description = "suspended"
		if slot.SuspendedFrom != nil {
			description += " from " + slot.SuspendedFrom.String()
		}
		if slot.SuspendedUntil != nil {
			description += " until " + slot.SuspendedUntil.String()
		}
	}

	return export.CalendarEvent{
		UID:         slotEventUID(slot.CampusID, ref, slot.StartTime),
		Summary:     fmt.Sprintf("Campus %d slot %s-%s", slot.CampusID, trimSeconds(slot.StartTime), trimSeconds(slot.EndTime)),
		Description: description,
		Start:       midnight.Add(start),
		End:         midnight.Add(end),
		Cancelled:   !allocatable,
	}, nil
}

func slotEventUID(campusID int64, ref models.Date, startTime string) string {
	name := fmt.Sprintf("%d/%s/%s", campusID, ref, startTime)
	return uuid.NewSHA1(slotEventNamespace, []byte(name)).String() + "@campus-slot-api"
}

func buildAllocatableDataset(listing *dto.AllocatableSlots) export.Dataset {
	rows := make([][]string, 0, len(listing.Slots))
	for _, slot := range listing.Slots {
		rows = append(rows, []string{
			fmt.Sprintf("%d", slot.CampusID),
			slot.StartTime,
			slot.EndTime,
			string(slot.Status),
			optionalDate(slot.SuspendedFrom),
			optionalDate(slot.SuspendedUntil),
		})
	}
	subtitle := fmt.Sprintf("Campus %d on %s", listing.CampusID, listing.ReferenceDate)
	if listing.From != "" {
		subtitle += ", ending after " + listing.From
	}
	return export.Dataset{
		Title:    "Allocatable Slots",
		Subtitle: subtitle,
		Headers:  []string{"Campus", "Start", "End", "Status", "Suspended From", "Suspended Until"},
		Rows:     rows,
	}
}

func optionalDate(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func clockOffset(clock string) (time.Duration, error) {
	t, err := time.Parse(models.ClockLayout, clock)
	if err != nil {
		return 0, fmt.Errorf("parse slot time %q: %w", clock, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

func trimSeconds(clock string) string {
	return strings.TrimSuffix(clock, ":00")
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
