package eventworker_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/example/session-scheduler/internal/booking"
	"github.com/example/session-scheduler/internal/capacity"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/eventbus"
	"github.com/example/session-scheduler/internal/eventworker"
	"github.com/example/session-scheduler/internal/reader"
	"github.com/example/session-scheduler/internal/testfixtures"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	source, detailType string
	detail             any
}

func (f *fakePublisher) Publish(ctx context.Context, source, detailType string, detail any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{source: source, detailType: detailType, detail: detail})
	return nil
}

func (f *fakePublisher) last() publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

func newWorker(t *testing.T) (*eventworker.Worker, *fakePublisher) {
	t.Helper()
	repo := testfixtures.NewStoreRepository(t)
	ctx := context.Background()
	now := testfixtures.ReferenceTime()

	if err := repo.CreateSchedule(ctx, domain.Schedule{
		TenantID: "t1", ScheduleID: "sched1", Type: domain.ScheduleTypeSession,
		Timezone: "UTC", Start: "2025-01-06T09:00:00", End: "2025-01-06T10:00:00",
		HasCapacity: true, BaseCapacity: 5, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed schedule: %v", err)
	}

	clock := testfixtures.NewClock(now)
	ids := testfixtures.NewIDGenerator("bk")
	bookingSvc := booking.New(repo, capacity.New(repo), clock.NowFunc(), ids.NextFunc())
	readerSvc := reader.New(repo, 0)
	pub := &fakePublisher{}
	return eventworker.New(bookingSvc, readerSvc, pub, nil), pub
}

func dispatch(t *testing.T, consumer *eventbus.Consumer, detailType string, detail any) {
	t.Helper()
	payload, err := json.Marshal(eventbus.Envelope{Source: "external-agent", DetailType: detailType, Detail: marshal(t, detail)})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	task := asynq.NewTask(detailType, payload)
	if err := consumer.Mux().ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
}

func marshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestBookingRequestedEmitsConfirmed(t *testing.T) {
	worker, pub := newWorker(t)
	consumer := eventbus.NewConsumer()
	worker.Register(consumer)

	dispatch(t, consumer, "scheduling.booking_requested", map[string]any{
		"tenantId":  "t1",
		"channelId": "chat-widget",
		"subjectId": "sub1",
		"schedulingData": map[string]any{
			"sessionId": "sched1#2025-01-06",
		},
	})

	last := pub.last()
	if last.detailType != "scheduling.booking_confirmed" {
		t.Fatalf("detailType = %s, want scheduling.booking_confirmed", last.detailType)
	}
}

func TestBookingRequestedMissingFieldEmitsFailed(t *testing.T) {
	worker, pub := newWorker(t)
	consumer := eventbus.NewConsumer()
	worker.Register(consumer)

	dispatch(t, consumer, "scheduling.booking_requested", map[string]any{
		"tenantId": "t1",
	})

	last := pub.last()
	if last.detailType != "scheduling.booking_failed" {
		t.Fatalf("detailType = %s, want scheduling.booking_failed", last.detailType)
	}
}

func TestDuplicateBookingRequestedIsIdempotent(t *testing.T) {
	worker, pub := newWorker(t)
	consumer := eventbus.NewConsumer()
	worker.Register(consumer)

	detail := map[string]any{
		"tenantId":  "t1",
		"channelId": "chat-widget",
		"subjectId": "sub1",
		"schedulingData": map[string]any{
			"sessionId": "sched1#2025-01-06",
		},
	}

	dispatch(t, consumer, "scheduling.booking_requested", detail)
	dispatch(t, consumer, "scheduling.booking_requested", detail)

	if len(pub.events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(pub.events))
	}
	for _, ev := range pub.events {
		if ev.detailType != "scheduling.booking_confirmed" {
			t.Errorf("detailType = %s, want scheduling.booking_confirmed on both attempts", ev.detailType)
		}
	}
}

func TestConsultationRequestedEmitsScheduled(t *testing.T) {
	worker, pub := newWorker(t)
	consumer := eventbus.NewConsumer()
	worker.Register(consumer)

	dispatch(t, consumer, "appointment.consultation_requested", map[string]any{
		"tenantId":        "t1",
		"channelId":       "call-center",
		"leadId":          "lead1",
		"goalId":          "goal1",
		"appointmentType": "CONSULT",
		"schedulingData": map[string]any{
			"sessionId": "sched1#2025-01-06",
		},
	})

	last := pub.last()
	if last.detailType != "appointment.scheduled" {
		t.Fatalf("detailType = %s, want appointment.scheduled", last.detailType)
	}
}
