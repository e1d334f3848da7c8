package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/audiocore/sink/corefacing"
	"github.com/audiocore/sink/memchunk"
)

// Monitor is a sink's always-present monitor source: a read-only tap
// of the post-mix signal, exposed as its own named, countable
// endpoint. It has no state machine of its own; its lifecycle mirrors
// the owning sink's Put/Unlink.
type Monitor struct {
	mu sync.Mutex

	sink *Sink
	name string

	proplist  map[string]string
	consumers int
	queue     *memchunk.Queue

	live      bool
	maxRewind int
}

// monitorQueueBytes bounds how much post-mix audio a monitor tap
// buffers for a slow consumer before Push starts dropping data.
const monitorQueueBytes = 1 << 20

func newMonitor(s *Sink) (*Monitor, error) {
	name, err := s.nameRegistry.Register(s.name+".monitor", corefacing.RenameIfExists)
	if err != nil {
		return nil, err
	}
	dn := s.proplist[propDeviceDescription]
	if dn == "" {
		dn = s.name
	}
	return &Monitor{
		sink: s,
		name: name,
		proplist: map[string]string{
			propDeviceDescription: fmt.Sprintf("Monitor of %s", dn),
			propDeviceClass:       "monitor",
		},
		queue: memchunk.NewQueue(monitorQueueBytes),
	}, nil
}

// Name returns the monitor's registered name.
func (m *Monitor) Name() string {
	return m.name
}

func (m *Monitor) put(ctx context.Context) error {
	m.mu.Lock()
	m.live = true
	m.mu.Unlock()
	return nil
}

func (m *Monitor) unlink(ctx context.Context) {
	m.mu.Lock()
	m.live = false
	m.consumers = 0
	m.mu.Unlock()
	m.sink.nameRegistry.Unregister(m.name)
}

// LinkedBy returns the monitor's own client count, which the owning
// sink folds into its LinkedBy total.
func (m *Monitor) LinkedBy() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumers
}

// AddConsumer registers a new monitor client; the sink must re-run
// UpdateStatus afterward since monitor clients affect render (whether
// Skip must still mix) even though they never affect UsedBy.
func (m *Monitor) AddConsumer() {
	m.mu.Lock()
	m.consumers++
	m.mu.Unlock()
}

// RemoveConsumer unregisters a monitor client.
func (m *Monitor) RemoveConsumer() {
	m.mu.Lock()
	if m.consumers > 0 {
		m.consumers--
	}
	m.mu.Unlock()
}

// HasConsumers reports whether the monitor currently has at least one
// client, the condition under which Skip must still mix rather than
// silently drop.
func (m *Monitor) HasConsumers() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consumers > 0
}

// push delivers a post-mix chunk to the monitor's tap. A full queue
// drops the oldest data rather than blocking the render path: the
// monitor is a best-effort tap, never allowed to apply backpressure to
// playback.
func (m *Monitor) push(c memchunk.Memchunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live || m.consumers == 0 {
		return
	}
	if err := m.queue.Push(c.Ref()); err != nil {
		m.queue.Drop(c.Length)
		_ = m.queue.Push(c.Ref())
	}
}

// Read drains up to length bytes of buffered monitor audio for a
// consumer. It is the monitor-side analog of sinkinput.Input.Peek plus
// Drop collapsed into one call, since monitor consumers pull rather
// than being pulled from.
func (m *Monitor) Read(length int) (memchunk.Memchunk, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.queue.Peek(length)
	if !ok {
		return memchunk.Memchunk{}, false
	}
	m.queue.Drop(c.Length)
	return c, true
}

func (m *Monitor) attach() {}
func (m *Monitor) detach() {}

// Description returns the monitor's current device description.
func (m *Monitor) Description() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proplist[propDeviceDescription]
}

// DeviceClass returns the monitor's device.class proplist entry,
// always "monitor" for the lifetime of a Monitor.
func (m *Monitor) DeviceClass() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proplist[propDeviceClass]
}

// setDescription renames the monitor to track a description change on
// the owning sink.
func (m *Monitor) setDescription(sinkName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proplist[propDeviceDescription] = fmt.Sprintf("Monitor Source of %s", sinkName)
}

// UpdateMaxRewind records the sink's current rewind window against the
// monitor tap, mirroring the propagation a sink gives every attached
// input.
func (m *Monitor) UpdateMaxRewind(nbytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRewind = nbytes
}

// MaxRewind returns the most recently recorded UpdateMaxRewind value.
func (m *Monitor) MaxRewind() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxRewind
}

// ProcessRewind invalidates nbytes of already-buffered monitor audio,
// if the monitor is open. A monitor with no consumer listening yet has
// nothing to rewind.
func (m *Monitor) ProcessRewind(nbytes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.live {
		return
	}
	m.queue.DropTail(nbytes)
}

// AddMonitorConsumer registers a new client of the sink's monitor
// source and re-runs UpdateStatus, since a monitor consumer can keep
// Skip mixing even while UsedBy is zero.
func (s *Sink) AddMonitorConsumer(ctx context.Context) error {
	s.monitor.AddConsumer()
	return s.UpdateStatus(ctx)
}

// RemoveMonitorConsumer unregisters a monitor client.
func (s *Sink) RemoveMonitorConsumer(ctx context.Context) error {
	s.monitor.RemoveConsumer()
	return s.UpdateStatus(ctx)
}
