package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
)

type fakeReloader struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReloader) Reload(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeReloader) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeInvalidator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeInvalidator) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func msgFor(t *testing.T, ev ReloadEvent) *sarama.ConsumerMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "t", Partition: 0, Offset: 1, Timestamp: ev.TS, Value: b}
}

func newTestRunner(rl Reloader, inv map[string]Invalidator) (*Runner, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	r := New(Config{Enabled: true}, rl, Options{Register: reg, Invalidators: inv})
	return r, reg
}

func TestReloadEvent_AndIdempotency(t *testing.T) {
	rl := &fakeReloader{}
	st, nb := &fakeInvalidator{}, &fakeInvalidator{}
	r, _ := newTestRunner(rl, map[string]Invalidator{DatasetStations: st, DatasetNeighborhoods: nb})
	ctx := context.Background()

	msg := msgFor(t, ReloadEvent{Version: 1, Dataset: DatasetStations, TS: time.Now().UTC(), Op: "reload"})
	if err := r.handleMessage(ctx, msg); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	// same version again -> skipped
	if err := r.handleMessage(ctx, msg); err != nil {
		t.Fatalf("second handleMessage: %v", err)
	}
	if rl.Count() != 1 {
		t.Fatalf("reloads = %d, want 1", rl.Count())
	}
	if st.calls != 1 || nb.calls != 0 {
		t.Fatalf("invalidations stations=%d neighborhoods=%d, want 1/0", st.calls, nb.calls)
	}
	if got := testutil.ToFloat64(r.ms.msgs.WithLabelValues("skip_version")); got != 1 {
		t.Fatalf("skip_version = %v, want 1", got)
	}
}

func TestReloadAll_InvalidatesBoth(t *testing.T) {
	rl := &fakeReloader{}
	st, nb := &fakeInvalidator{}, &fakeInvalidator{err: errors.New("redis down")}
	r, _ := newTestRunner(rl, map[string]Invalidator{DatasetStations: st, DatasetNeighborhoods: nb})

	msg := msgFor(t, ReloadEvent{Version: 3, Dataset: DatasetAll, TS: time.Now().UTC()})
	if err := r.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if st.calls != 1 || nb.calls != 1 {
		t.Fatalf("invalidations stations=%d neighborhoods=%d, want 1/1", st.calls, nb.calls)
	}
	if rl.Count() != 1 {
		t.Fatalf("reload should proceed after invalidation failure, got %d", rl.Count())
	}
}

func TestOlderVersionSkipped(t *testing.T) {
	rl := &fakeReloader{}
	r, _ := newTestRunner(rl, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, v := range []uint64{5, 4, 6} {
		if err := r.handleMessage(ctx, msgFor(t, ReloadEvent{Version: v, Dataset: DatasetAll, TS: now})); err != nil {
			t.Fatalf("v%d: %v", v, err)
		}
	}
	if rl.Count() != 2 {
		t.Fatalf("reloads = %d, want 2", rl.Count())
	}
}

func TestFailedReloadCanBeRetried(t *testing.T) {
	rl := &fakeReloader{err: errors.New("upstream")}
	r, _ := newTestRunner(rl, nil)
	ctx := context.Background()
	msg := msgFor(t, ReloadEvent{Version: 2, Dataset: DatasetStations, TS: time.Now().UTC()})

	if err := r.handleMessage(ctx, msg); err == nil {
		t.Fatal("expected reload error")
	}
	rl.mu.Lock()
	rl.err = nil
	rl.mu.Unlock()

	if err := r.handleMessage(ctx, msg); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if rl.Count() != 2 {
		t.Fatalf("reloads = %d, want 2 (retry must not be skipped)", rl.Count())
	}
	if got := testutil.ToFloat64(r.ms.msgs.WithLabelValues("skip_version")); got != 0 {
		t.Fatalf("skip_version = %v, want 0", got)
	}
}

func TestAllVersionTrackedPerDataset(t *testing.T) {
	rl := &fakeReloader{}
	r, _ := newTestRunner(rl, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	steps := []struct {
		ev      ReloadEvent
		reloads int
	}{
		{ReloadEvent{Version: 5, Dataset: DatasetStations, TS: now}, 1},
		// neighborhoods has not seen 5 yet
		{ReloadEvent{Version: 5, Dataset: DatasetAll, TS: now}, 2},
		{ReloadEvent{Version: 5, Dataset: DatasetNeighborhoods, TS: now}, 2},
		{ReloadEvent{Version: 4, Dataset: DatasetAll, TS: now}, 2},
		{ReloadEvent{Version: 6, Dataset: DatasetNeighborhoods, TS: now}, 3},
	}
	for i, s := range steps {
		if err := r.handleMessage(ctx, msgFor(t, s.ev)); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if rl.Count() != s.reloads {
			t.Fatalf("step %d (%s v%d): reloads = %d, want %d", i, s.ev.Dataset, s.ev.Version, rl.Count(), s.reloads)
		}
	}
}

func TestHandleMessage_Errors(t *testing.T) {
	rl := &fakeReloader{err: errors.New("upstream")}
	r, _ := newTestRunner(rl, nil)
	ctx := context.Background()

	bad := &sarama.ConsumerMessage{Value: []byte("{not json")}
	if err := r.handleMessage(ctx, bad); err == nil || !strings.Contains(err.Error(), "decode") {
		t.Fatalf("want decode error, got %v", err)
	}

	invalid := msgFor(t, ReloadEvent{Version: 1, Dataset: "parcels", TS: time.Now()})
	if err := r.handleMessage(ctx, invalid); err == nil || !strings.Contains(err.Error(), "validate") {
		t.Fatalf("want validate error, got %v", err)
	}

	failing := msgFor(t, ReloadEvent{Version: 1, Dataset: DatasetStations, TS: time.Now()})
	if err := r.handleMessage(ctx, failing); err == nil || !strings.Contains(err.Error(), "reload v1") {
		t.Fatalf("want reload error, got %v", err)
	}
	if got := testutil.ToFloat64(r.ms.msgs.WithLabelValues("error")); got != 3 {
		t.Fatalf("error count = %v, want 3", got)
	}
}

func TestTimestampFallsBackToMessage(t *testing.T) {
	rl := &fakeReloader{}
	r, _ := newTestRunner(rl, nil)
	b, _ := json.Marshal(map[string]any{"version": 1, "dataset": "neighborhoods"})
	msg := &sarama.ConsumerMessage{Timestamp: time.Now().Add(-time.Second), Value: b}
	if err := r.handleMessage(context.Background(), msg); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	if rl.Count() != 1 {
		t.Fatalf("reloads = %d, want 1", rl.Count())
	}
	if lag := testutil.ToFloat64(r.ms.lagGauge); lag <= 0 {
		t.Fatalf("lag = %v, want > 0", lag)
	}
}

func TestReadiness(t *testing.T) {
	off := New(Config{}, &fakeReloader{}, Options{})
	if ok, _ := off.Readiness(); !ok {
		t.Fatal("disabled runner should report ready")
	}
	if err := off.Start(context.Background()); err != nil {
		t.Fatalf("disabled start: %v", err)
	}

	on, _ := newTestRunner(&fakeReloader{}, nil)
	if ok, _ := on.Readiness(); ok {
		t.Fatal("enabled runner without assignment should not be ready")
	}
}

func TestStart_RequiresReloader(t *testing.T) {
	r := New(Config{Enabled: true}, nil, Options{})
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("expected error without reloader")
	}
}

func TestFromApp(t *testing.T) {
	c := FromApp(config.ReloadCfg{Enabled: true, Brokers: " a:9092, ,b:9092 ", Topic: "t", GroupID: "g"})
	if len(c.Brokers) != 2 || c.Brokers[0] != "a:9092" || c.Brokers[1] != "b:9092" {
		t.Fatalf("brokers = %v", c.Brokers)
	}
	if c.SessionTimeout != 30*time.Second || c.Heartbeat != 3*time.Second {
		t.Fatalf("timeouts = %v/%v", c.SessionTimeout, c.Heartbeat)
	}
}

type fakeProducer struct {
	sarama.SyncProducer
	sent []*sarama.ProducerMessage
	err  error
}

func (f *fakeProducer) SendMessage(m *sarama.ProducerMessage) (int32, int64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	f.sent = append(f.sent, m)
	return 2, int64(len(f.sent)), nil
}

func TestPublish(t *testing.T) {
	p := &fakeProducer{}
	ev := ReloadEvent{Version: 7, Dataset: DatasetStations, TS: time.Now().UTC(), Op: "reload"}
	part, off, err := Publish(p, "dataset-reload", ev)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if part != 2 || off != 1 || len(p.sent) != 1 {
		t.Fatalf("partition=%d offset=%d sent=%d", part, off, len(p.sent))
	}
	key, _ := p.sent[0].Key.Encode()
	if string(key) != DatasetStations {
		t.Fatalf("key = %q", key)
	}
	val, _ := p.sent[0].Value.Encode()
	var got ReloadEvent
	if err := json.Unmarshal(val, &got); err != nil || got.Version != 7 {
		t.Fatalf("payload = %s (%v)", val, err)
	}

	if _, _, err := Publish(p, "t", ReloadEvent{Dataset: DatasetAll}); err == nil {
		t.Fatal("expected validation error")
	}
	if _, _, err := Publish(&fakeProducer{err: errors.New("broker down")}, "t", ev); err == nil {
		t.Fatal("expected send error")
	}
}
