package corefacing_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/audiocore/sink/corefacing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNameRegistryFailIfExists(t *testing.T) {
	r := corefacing.NewNameRegistry()
	name, err := r.Register("sink1", corefacing.FailIfExists)
	assert.NoError(t, err)
	assert.Equal(t, "sink1", name)

	_, err = r.Register("sink1", corefacing.FailIfExists)
	assert.Error(t, err)
}

func TestNameRegistryRenameIfExists(t *testing.T) {
	r := corefacing.NewNameRegistry()
	first, err := r.Register("sink1", corefacing.RenameIfExists)
	assert.NoError(t, err)
	assert.Equal(t, "sink1", first)

	second, err := r.Register("sink1", corefacing.RenameIfExists)
	assert.NoError(t, err)
	assert.Equal(t, "sink1.2", second)

	third, err := r.Register("sink1", corefacing.RenameIfExists)
	assert.NoError(t, err)
	assert.Equal(t, "sink1.3", third)
}

func TestNameRegistryEmptyName(t *testing.T) {
	r := corefacing.NewNameRegistry()
	_, err := r.Register("", corefacing.FailIfExists)
	assert.Error(t, err)
}

func TestNameRegistryUnregisterFreesName(t *testing.T) {
	r := corefacing.NewNameRegistry()
	name, _ := r.Register("sink1", corefacing.FailIfExists)
	r.Unregister(name)
	r.Unregister(name) // idempotent

	got, err := r.Register("sink1", corefacing.FailIfExists)
	assert.NoError(t, err)
	assert.Equal(t, "sink1", got)
}

func TestHookBusFireRunsAllSubscribers(t *testing.T) {
	bus := corefacing.NewHookBus()
	var mu sync.Mutex
	seen := 0
	for i := 0; i < 5; i++ {
		bus.Subscribe(corefacing.HookSinkNew, func(ctx context.Context, payload interface{}) error {
			mu.Lock()
			seen++
			mu.Unlock()
			return nil
		})
	}
	err := bus.Fire(context.Background(), corefacing.HookSinkNew, nil)
	assert.NoError(t, err)
	assert.Equal(t, 5, seen)
}

func TestHookBusFirePropagatesVeto(t *testing.T) {
	bus := corefacing.NewHookBus()
	wantErr := errors.New("no")
	bus.Subscribe(corefacing.HookSinkNew, func(ctx context.Context, payload interface{}) error {
		return nil
	})
	bus.Subscribe(corefacing.HookSinkNew, func(ctx context.Context, payload interface{}) error {
		return wantErr
	})
	err := bus.Fire(context.Background(), corefacing.HookSinkNew, nil)
	assert.Error(t, err)
}

type recordingSubscriber struct {
	mu     sync.Mutex
	events []corefacing.SubscriptionEvent
}

func (r *recordingSubscriber) Notify(event corefacing.SubscriptionEvent, sinkIndex uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestSubscriptionBusPublish(t *testing.T) {
	bus := corefacing.NewSubscriptionBus()
	sub := &recordingSubscriber{}
	bus.Subscribe(sub)

	bus.Publish(corefacing.EventNew, 1)
	bus.Publish(corefacing.EventChange, 1)

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, []corefacing.SubscriptionEvent{corefacing.EventNew, corefacing.EventChange}, sub.events)
}
