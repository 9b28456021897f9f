// Package eventworker implements the Event Worker booking ingress (spec.md
// §4.8): a second, asynchronous entry point into the Booking Engine that
// consumes booking-request events and always emits exactly one result
// event, absorbing every failure rather than propagating it to the
// transport.
package eventworker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/session-scheduler/internal/apperrors"
	"github.com/example/session-scheduler/internal/booking"
	"github.com/example/session-scheduler/internal/eventbus"
	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/reader"
)

const (
	sourceName = "scheduling.worker"

	detailBookingRequested      = "scheduling.booking_requested"
	detailConsultationRequested = "appointment.consultation_requested"
	detailBookingConfirmed      = "scheduling.booking_confirmed"
	detailBookingFailed         = "scheduling.booking_failed"
	detailAppointmentScheduled  = "appointment.scheduled"
	detailAppointmentFailed     = "appointment.failed"
)

// resultPublisher is the narrow interface Worker needs from
// eventbus.Publisher, letting tests supply a fake without a redis
// connection.
type resultPublisher interface {
	Publish(ctx context.Context, source, detailType string, detail any) error
}

// Worker consumes booking-request events and drives the Booking Engine.
type Worker struct {
	booking   *booking.Service
	reader    *reader.Service
	publisher resultPublisher
	logger    *slog.Logger
}

// New returns a Worker wired to the given Booking Engine, Session Reader
// (used to format sessionDetails on success), and result-event publisher.
func New(bookingSvc *booking.Service, readerSvc *reader.Service, publisher resultPublisher, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{booking: bookingSvc, reader: readerSvc, publisher: publisher, logger: logger}
}

// Register wires the worker's two handlers onto consumer.
func (w *Worker) Register(consumer *eventbus.Consumer) {
	consumer.HandleFunc(detailBookingRequested, w.handleBookingRequested)
	consumer.HandleFunc(detailConsultationRequested, w.handleConsultationRequested)
}

type bookingRequestedDetail struct {
	TenantID       string          `json:"tenantId"`
	ChannelID      string          `json:"channelId"`
	SubjectID      string          `json:"subjectId"`
	GoalID         string          `json:"goalId,omitempty"`
	BookingType    string          `json:"bookingType,omitempty"`
	SchedulingData json.RawMessage `json:"schedulingData"`
	ContactInfo    json.RawMessage `json:"contactInfo,omitempty"`
}

type consultationRequestedDetail struct {
	TenantID        string          `json:"tenantId"`
	ChannelID       string          `json:"channelId"`
	LeadID          string          `json:"leadId"`
	GoalID          string          `json:"goalId"`
	AppointmentType string          `json:"appointmentType"`
	SchedulingData  json.RawMessage `json:"schedulingData"`
	ContactInfo     json.RawMessage `json:"contactInfo,omitempty"`
}

type schedulingData struct {
	SessionID string `json:"sessionId"`
}

func (w *Worker) handleBookingRequested(ctx context.Context, env eventbus.Envelope) error {
	logger := w.loggerWith(ctx, "handleBookingRequested")

	var detail bookingRequestedDetail
	if err := json.Unmarshal(env.Detail, &detail); err != nil {
		return w.emitFailure(ctx, logger, detailBookingFailed, fmt.Sprintf("malformed event payload: %v", err))
	}

	var sched schedulingData
	_ = json.Unmarshal(detail.SchedulingData, &sched)

	if detail.TenantID == "" || detail.SubjectID == "" || sched.SessionID == "" {
		return w.emitFailure(ctx, logger, detailBookingFailed, "missing required field: tenantId, subjectId, or schedulingData.sessionId")
	}

	in := booking.CreateInput{
		TenantID:    detail.TenantID,
		SessionID:   sched.SessionID,
		SubjectID:   detail.SubjectID,
		SubjectType: "MEMBER",
		Source:      detail.ChannelID,
		Extra:       passThroughExtra(detail.GoalID, detail.BookingType, detail.ContactInfo),
	}

	return w.createAndEmit(ctx, logger, in, detailBookingConfirmed, detailBookingFailed)
}

func (w *Worker) handleConsultationRequested(ctx context.Context, env eventbus.Envelope) error {
	logger := w.loggerWith(ctx, "handleConsultationRequested")

	var detail consultationRequestedDetail
	if err := json.Unmarshal(env.Detail, &detail); err != nil {
		return w.emitFailure(ctx, logger, detailAppointmentFailed, fmt.Sprintf("malformed event payload: %v", err))
	}

	var sched schedulingData
	_ = json.Unmarshal(detail.SchedulingData, &sched)

	if detail.TenantID == "" || detail.LeadID == "" || sched.SessionID == "" {
		return w.emitFailure(ctx, logger, detailAppointmentFailed, "missing required field: tenantId, leadId, or schedulingData.sessionId")
	}

	in := booking.CreateInput{
		TenantID:    detail.TenantID,
		SessionID:   sched.SessionID,
		SubjectID:   detail.LeadID,
		SubjectType: "LEAD",
		Source:      detail.ChannelID,
		Extra:       passThroughExtra(detail.GoalID, detail.AppointmentType, detail.ContactInfo),
	}

	return w.createAndEmit(ctx, logger, in, detailAppointmentScheduled, detailAppointmentFailed)
}

func (w *Worker) createAndEmit(ctx context.Context, logger *slog.Logger, in booking.CreateInput, successType, failureType string) error {
	result, err := w.booking.Create(ctx, in)
	if err != nil && apperrors.Kind(err) != "AlreadyBooked" {
		logger.WarnContext(ctx, "booking create failed", "error", err, "error_kind", apperrors.Kind(err))
		return w.emitFailure(ctx, logger, failureType, err.Error())
	}
	// AlreadyBooked still carries the existing booking: treat as idempotent success.

	detail := map[string]any{
		"bookingId":      result.BookingID,
		"sessionId":      result.SessionID,
		"sessionDetails": w.sessionDetails(ctx, in.TenantID, result.SessionID),
	}
	return w.emit(ctx, logger, successType, detail)
}

func (w *Worker) sessionDetails(ctx context.Context, tenantID, sessionID string) map[string]string {
	if w.reader == nil {
		return nil
	}
	session, err := w.reader.QuerySingle(ctx, tenantID, sessionID)
	if err != nil {
		return nil
	}
	return map[string]string{
		"startTime": session.Start.Format("2006-01-02T15:04:05-07:00"),
		"endTime":   session.End.Format("2006-01-02T15:04:05-07:00"),
	}
}

func (w *Worker) emitFailure(ctx context.Context, logger *slog.Logger, detailType, message string) error {
	return w.emit(ctx, logger, detailType, map[string]any{"error": message})
}

func (w *Worker) emit(ctx context.Context, logger *slog.Logger, detailType string, detail any) error {
	if w.publisher == nil {
		return nil
	}
	if err := w.publisher.Publish(ctx, sourceName, detailType, detail); err != nil {
		logger.ErrorContext(ctx, "failed to publish result event", "error", err, "detail_type", detailType)
	}
	// The worker never propagates a failure past the transport (spec.md §4.8/§5):
	// a publish error is logged, not returned, so the bus never redelivers.
	return nil
}

func (w *Worker) loggerWith(ctx context.Context, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = w.logger
	}
	return logger.With("service", "eventworker", "operation", operation)
}

func passThroughExtra(goalID, typeField string, contactInfo json.RawMessage) map[string]any {
	extra := map[string]any{}
	if goalID != "" {
		extra["goalId"] = goalID
	}
	if typeField != "" {
		extra["bookingType"] = typeField
	}
	if len(contactInfo) > 0 {
		var contact any
		if err := json.Unmarshal(contactInfo, &contact); err == nil {
			extra["contactInfo"] = contact
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
