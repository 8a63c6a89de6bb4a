package event_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victornm/eexam/internal/event"
)

func TestBus_PublishSubscribe(t *testing.T) {
	type (
		inputs struct {
			published   []event.Event
			subscribers []subscriber
		}

		outputs struct {
			received map[string][]event.Event
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"a subscriber should only receive the events it subscribed to": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("attempt.started"),
						eventWithName("attempt.submitted"),
					},
					subscribers: []subscriber{
						{
							name:        "audit",
							subscribeTo: []string{"attempt.started"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.started")}, out.received["audit"])
			},
		},

		"a subscriber should receive every published occurrence": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("attempt.expired"),
						eventWithName("attempt.expired"),
					},
					subscribers: []subscriber{
						{
							name:        "audit",
							subscribeTo: []string{"attempt.expired"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t,
					[]event.Event{eventWithName("attempt.expired"), eventWithName("attempt.expired")},
					out.received["audit"])
			},
		},

		"an event should be dispatched to all subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("attempt.submitted"),
					},
					subscribers: []subscriber{
						{
							name:        "audit",
							subscribeTo: []string{"attempt.submitted"},
						},
						{
							name:        "metrics",
							subscribeTo: []string{"attempt.submitted"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.submitted")}, out.received["audit"])
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.submitted")}, out.received["metrics"])
			},
		},

		"multiple events should be routed by name across subscribers": {
			arrange: func() inputs {
				return inputs{
					published: []event.Event{
						eventWithName("attempt.started"),
						eventWithName("attempt.submitted"),
						eventWithName("attempt.started"),
						eventWithName("attempt.expired"),
					},
					subscribers: []subscriber{
						{
							name:        "s1",
							subscribeTo: []string{"attempt.started"},
						},
						{
							name:        "s2",
							subscribeTo: []string{"attempt.started", "attempt.submitted"},
						},
						{
							name:        "s3",
							subscribeTo: []string{"attempt.expired", "attempt.submitted"},
						},
					},
				}
			},

			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.started"), eventWithName("attempt.started")}, out.received["s1"])
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.started"), eventWithName("attempt.started"), eventWithName("attempt.submitted")}, out.received["s2"])
				assert.ElementsMatch(t, []event.Event{eventWithName("attempt.expired"), eventWithName("attempt.submitted")}, out.received["s3"])
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange()
			mu := sync.Mutex{}
			out := outputs{received: make(map[string][]event.Event)}

			b := event.NewBus()
			for _, s := range in.subscribers {
				for _, e := range s.subscribeTo {
					b.Subscribe(e, func(ctx context.Context, e event.Event) error {
						mu.Lock()
						out.received[s.name] = append(out.received[s.name], e)
						mu.Unlock()
						return nil
					})
				}
			}

			for _, e := range in.published {
				b.Publish(context.Background(), e)
			}
			b.Stop()

			tt.assert(t, out)
		})
	}
}

type eventWithName string

func (e eventWithName) Name() string {
	return string(e)
}

type subscriber struct {
	name        string
	subscribeTo []string
}
