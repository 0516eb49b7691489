package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"

	"github.com/polkiloo/fulfillrelay/internal/config"
	domainErrors "github.com/polkiloo/fulfillrelay/internal/domain/errors"
	"github.com/polkiloo/fulfillrelay/internal/domain/model"
	testhelpers "github.com/polkiloo/fulfillrelay/internal/test"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	pending   []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.pending) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.pending[0]
	r.pending = r.pending[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func newFakeKafka(writer *fakeWriter, reader *fakeReader, maxDeliveries int) *Kafka {
	return &Kafka{
		writer:        writer,
		newReader:     func() messageReader { return reader },
		maxDeliveries: maxDeliveries,
		logger:        testhelpers.DiscardLogger(),
	}
}

func encode(t *testing.T, task model.Task, offset int64) kafka.Message {
	t.Helper()
	value, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return kafka.Message{Value: value, Offset: offset}
}

func TestKafkaPublish(t *testing.T) {
	writer := &fakeWriter{}
	q := newFakeKafka(writer, nil, 3)

	task, _ := model.NewTask(model.TaskWebhook, model.WebhookTaskData{Source: model.WebhookSourceCDClick})
	if err := q.Publish(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.messages) != 1 || string(writer.messages[0].Key) != "webhook" {
		t.Fatalf("unexpected messages %+v", writer.messages)
	}
	var decoded model.Task
	if err := json.Unmarshal(writer.messages[0].Value, &decoded); err != nil || decoded.Type != model.TaskWebhook {
		t.Fatalf("unexpected payload %s: %v", writer.messages[0].Value, err)
	}

	writer.err = errors.New("broker down")
	if err := q.Publish(context.Background(), task); err == nil {
		t.Fatal("expected write error")
	}
}

func TestKafkaConsumeCommitsAndRedelivers(t *testing.T) {
	writer := &fakeWriter{}
	reader := &fakeReader{pending: []kafka.Message{
		encode(t, model.Task{Type: model.TaskStatusCheck}, 1),
		encode(t, model.Task{Type: model.TaskFulfillment, Deliveries: 1}, 2),
		encode(t, model.Task{Type: model.TaskFulfillment, Deliveries: 3}, 3),
		{Value: []byte("{"), Offset: 4},
	}}
	q := newFakeKafka(writer, reader, 3)

	var handled []model.Task
	err := q.Consume(context.Background(), func(_ context.Context, task model.Task) error {
		handled = append(handled, task)
		if task.Type == model.TaskFulfillment {
			return domainErrors.Fatal(errors.New("provider down"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(handled) != 3 {
		t.Fatalf("expected 3 handled tasks, got %d", len(handled))
	}
	if len(reader.committed) != 4 || !reader.closed {
		t.Fatalf("expected every message committed and reader closed, got %d", len(reader.committed))
	}
	if len(writer.messages) != 1 {
		t.Fatalf("expected a single redelivery, got %d", len(writer.messages))
	}
	var redelivered model.Task
	_ = json.Unmarshal(writer.messages[0].Value, &redelivered)
	if redelivered.Deliveries != 2 {
		t.Fatalf("expected delivery count 2, got %d", redelivered.Deliveries)
	}
}

func TestKafkaConsumeStopsWhenRedeliveryFails(t *testing.T) {
	writer := &fakeWriter{err: errors.New("broker down")}
	reader := &fakeReader{pending: []kafka.Message{
		encode(t, model.Task{Type: model.TaskWebhook}, 1),
		encode(t, model.Task{Type: model.TaskStatusCheck}, 2),
	}}
	q := newFakeKafka(writer, reader, 3)

	var calls int
	err := q.Consume(context.Background(), func(_ context.Context, task model.Task) error {
		calls++
		if task.Type == model.TaskWebhook {
			return domainErrors.Fatal(errors.New("db down"))
		}
		return nil
	})
	if err == nil || !errors.Is(err, writer.err) {
		t.Fatalf("expected redelivery error, got %v", err)
	}
	if calls != 1 || len(reader.committed) != 0 || !reader.closed {
		t.Fatalf("expected consumer to stop on the failed message, got calls=%d committed=%d", calls, len(reader.committed))
	}
	if len(reader.pending) != 1 {
		t.Fatalf("expected the next message to stay unread, got %d pending", len(reader.pending))
	}
}

func TestKafkaConsumeAcknowledgesRecoverableFailures(t *testing.T) {
	writer := &fakeWriter{}
	reader := &fakeReader{pending: []kafka.Message{encode(t, model.Task{Type: model.TaskWebhook}, 1)}}
	q := newFakeKafka(writer, reader, 3)

	err := q.Consume(context.Background(), func(context.Context, model.Task) error {
		return domainErrors.Recoverable(errors.New("provider down"))
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.messages) != 0 || len(reader.committed) != 1 {
		t.Fatalf("expected task acknowledged without redelivery, got %d writes %d commits", len(writer.messages), len(reader.committed))
	}
}

func TestRedeliveryLimit(t *testing.T) {
	cause := domainErrors.Fatal(errors.New("x"))
	task, err := redelivery(model.Task{Type: model.TaskWebhook, Deliveries: 1}, cause, 2)
	if err != nil || task.Deliveries != 2 {
		t.Fatalf("unexpected result %+v %v", task, err)
	}
	if _, err := redelivery(task, cause, 2); !errors.Is(err, domainErrors.ErrRedeliveryLimited) {
		t.Fatalf("expected redelivery limit, got %v", err)
	}
	if _, err := redelivery(task, errors.New("x"), 2); err == nil || errors.Is(err, domainErrors.ErrRedeliveryLimited) {
		t.Fatalf("expected unclassified failure to be dropped, got %v", err)
	}
}

func TestNewSelectsTransport(t *testing.T) {
	logger := testhelpers.DiscardLogger()

	if _, ok := New(&config.Config{Queue: config.QueueConfig{MaxDeliveries: 2}}, logger).(*Memory); !ok {
		t.Fatal("expected in-process queue without brokers")
	}

	q := New(&config.Config{Queue: config.QueueConfig{Brokers: []string{"localhost:9092"}, Topic: "tasks", GroupID: "g"}}, logger)
	k, ok := q.(*Kafka)
	if !ok {
		t.Fatal("expected kafka queue with brokers")
	}
	if w, ok := k.writer.(*kafka.Writer); !ok || w.Topic != "tasks" {
		t.Fatalf("unexpected writer %#v", k.writer)
	}
	_ = k.Close()
}
