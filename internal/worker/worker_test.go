package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuongbtq/kamo-scheduler/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls    int32
	outcomes []domain.Outcome
	err      error
	panicMsg string
}

func (f *fakeSweeper) Sweep(ctx context.Context) ([]domain.Outcome, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.outcomes, f.err
}

func (f *fakeSweeper) Calls() int {
	return int(atomic.LoadInt32(&f.calls))
}

func TestRunNow(t *testing.T) {
	tests := []struct {
		name      string
		casts     *fakeSweeper
		coins     *fakeSweeper
		want      Report
		wantErr   string
		coinCalls int
	}{
		{
			name:  "both sweeps",
			casts: &fakeSweeper{outcomes: []domain.Outcome{{ID: "c1", OK: true, CastHash: "0x1"}}},
			coins: &fakeSweeper{outcomes: []domain.Outcome{{ID: "z1", Error: "mint: boom"}, {ID: "z2", OK: true}}},
			want: Report{
				CastsProcessed: 1,
				CoinsProcessed: 2,
				CastResults:    []domain.Outcome{{ID: "c1", OK: true, CastHash: "0x1"}},
				CoinResults:    []domain.Outcome{{ID: "z1", Error: "mint: boom"}, {ID: "z2", OK: true}},
			},
			coinCalls: 1,
		},
		{
			name:  "nothing due",
			casts: &fakeSweeper{outcomes: []domain.Outcome{}},
			coins: &fakeSweeper{},
			want: Report{
				CastResults: []domain.Outcome{},
				CoinResults: []domain.Outcome{},
			},
			coinCalls: 1,
		},
		{
			name: "cast sweep error stops coin sweep",
			casts: &fakeSweeper{
				outcomes: []domain.Outcome{{ID: "c1", OK: true}},
				err:      errors.New("store down"),
			},
			coins: &fakeSweeper{},
			want: Report{
				CastsProcessed: 1,
				CastResults:    []domain.Outcome{{ID: "c1", OK: true}},
				CoinResults:    []domain.Outcome{},
			},
			wantErr:   "cast sweep: store down",
			coinCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := NewTrigger(discard, tt.casts, tt.coins, time.Minute)

			report, err := trigger.RunNow(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, report)
			assert.Equal(t, tt.coinCalls, tt.coins.Calls())
		})
	}
}

func TestTriggerTickSwallowsFailures(t *testing.T) {
	casts := &fakeSweeper{panicMsg: "boom"}
	coins := &fakeSweeper{}
	trigger := NewTrigger(discard, casts, coins, time.Minute)

	assert.NotPanics(t, func() { trigger.tick(context.Background()) })
	assert.Equal(t, 1, casts.Calls())

	failing := NewTrigger(discard, &fakeSweeper{err: errors.New("down")}, coins, time.Minute)
	assert.NotPanics(t, func() { failing.tick(context.Background()) })
}

func TestTriggerStartStop(t *testing.T) {
	casts := &fakeSweeper{}
	coins := &fakeSweeper{}
	trigger := NewTrigger(discard, casts, coins, time.Second)

	require.NoError(t, trigger.Start(context.Background()))
	assert.Error(t, trigger.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return casts.Calls() > 0 && coins.Calls() > 0
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, trigger.Stop(ctx))

	// stopping twice is a no-op
	require.NoError(t, trigger.Stop(ctx))
}

func TestNewTriggerDefaultInterval(t *testing.T) {
	trigger := NewTrigger(discard, &fakeSweeper{}, &fakeSweeper{}, 0)
	assert.Equal(t, DefaultInterval, trigger.interval)
}

type ackRecorder struct {
	acks    int32
	nacks   int32
	requeue int32
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	atomic.AddInt32(&a.acks, 1)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple bool, requeue bool) error {
	atomic.AddInt32(&a.nacks, 1)
	if requeue {
		atomic.AddInt32(&a.requeue, 1)
	}
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type chanSource struct {
	ch chan amqp.Delivery
}

func (s *chanSource) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	return s.ch, nil
}

func TestConsumerHandle(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		sweepErr  error
		wantAck   int32
		wantNack  int32
		wantSweep int
	}{
		{name: "sweep request", body: `{"action":"sweep"}`, wantAck: 1, wantSweep: 1},
		{name: "malformed json", body: `{action`, wantNack: 1},
		{name: "unknown action", body: `{"action":"purge"}`, wantNack: 1},
		{name: "sweep failure", body: `{"action":"sweep"}`, sweepErr: errors.New("down"), wantNack: 1, wantSweep: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			casts := &fakeSweeper{err: tt.sweepErr}
			trigger := NewTrigger(discard, casts, &fakeSweeper{}, time.Minute)
			consumer := NewConsumer(discard, &chanSource{}, trigger, "test")

			acks := &ackRecorder{}
			consumer.handle(context.Background(), amqp.Delivery{
				Acknowledger: acks,
				DeliveryTag:  1,
				Body:         []byte(tt.body),
			})

			assert.Equal(t, tt.wantAck, atomic.LoadInt32(&acks.acks))
			assert.Equal(t, tt.wantNack, atomic.LoadInt32(&acks.nacks))
			assert.Equal(t, int32(0), atomic.LoadInt32(&acks.requeue))
			assert.Equal(t, tt.wantSweep, casts.Calls())
		})
	}
}

func TestConsumerRun(t *testing.T) {
	source := &chanSource{ch: make(chan amqp.Delivery, 1)}
	casts := &fakeSweeper{}
	trigger := NewTrigger(discard, casts, &fakeSweeper{}, time.Minute)
	consumer := NewConsumer(discard, source, trigger, "test")

	acks := &ackRecorder{}
	source.ch <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 7, Body: []byte(`{"action":"sweep"}`)}
	close(source.ch)

	require.NoError(t, consumer.Run(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&acks.acks))
	assert.Equal(t, 1, casts.Calls())
}
