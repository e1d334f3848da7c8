package sink

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/audiocore/sink/corefacing"
	"github.com/audiocore/sink/cvolume"
	"github.com/audiocore/sink/memchunk"
	"github.com/audiocore/sink/sinkinput"
)

// SinkState is one of INIT / IDLE / RUNNING / SUSPENDED / UNLINKED.
type SinkState int

const (
	StateInit SinkState = iota
	StateIdle
	StateRunning
	StateSuspended
	StateUnlinked
)

func (s SinkState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateSuspended:
		return "SUSPENDED"
	case StateUnlinked:
		return "UNLINKED"
	default:
		return "UNKNOWN"
	}
}

// propDeviceDescription is the proplist key carrying a sink's (and its
// monitor's) human-readable description.
const propDeviceDescription = "device.description"

// propDeviceClass is the proplist key a monitor source sets to
// "monitor", identifying it to clients enumerating sources as a sink's
// tap rather than a real capture device.
const propDeviceClass = "device.class"

// Flags are sink capability bits.
type Flags uint32

const (
	// FlagHWVolumeCtrl indicates the driver handles volume itself.
	FlagHWVolumeCtrl Flags = 1 << iota
	// FlagDecibelVolume indicates the reported curve is dB-linear.
	FlagDecibelVolume
)

// DriverHooks are the driver-supplied behavior hooks. Any subset may
// be nil; a nil hook means the sink falls back to its software path.
type DriverHooks struct {
	SetState               func(SinkState) error
	GetVolume              func() (cvolume.CVolume, error)
	SetVolume              func(cvolume.CVolume) error
	GetMute                func() (bool, error)
	SetMute                func(bool) error
	GetLatency             func() (int64, error)
	RequestRewind          func(nbytes int)
	UpdateRequestedLatency func(usec int64, valid bool)
}

// Builder collects the fields needed to construct a Sink: fill it in
// and pass it to New.
type Builder struct {
	Name       string
	DriverName string
	SampleSpec SampleSpec
	ChannelMap ChannelMap
	Volume     cvolume.CVolume
	Muted      bool
	Proplist   map[string]string
	Flags      Flags
	NameFail   corefacing.NameRegistryFailMode

	NameRegistry  *corefacing.NameRegistry
	HookBus       *corefacing.HookBus
	Subscriptions *corefacing.SubscriptionBus
	Pool          *memchunk.Pool
	Logger        Logger
}

var (
	ErrEmptyName         = errors.New("sink: name must not be empty")
	ErrInvalidUTF8       = errors.New("sink: name or driver is not valid UTF-8")
	ErrVetoed            = errors.New("sink: construction vetoed by hook")
	ErrNotInit           = errors.New("sink: put called outside INIT")
	ErrLatencyBounds     = errors.New("sink: min_latency must be <= max_latency")
	ErrQueueNotSet       = errors.New("sink: message queue not set")
	ErrInputsStillLinked = errors.New("sink: free called with inputs still attached")
	ErrPutTwice          = errors.New("sink: put called twice")
)

// Sink is the control-side view of a playback endpoint. Every
// exported method is meant to be called from a single control thread
// only; there is deliberately no internal locking, the same
// single-writer discipline a real-time audio server applies to its
// own control path.
type Sink struct {
	index      uint32
	tag        string
	name       string
	driverName string
	proplist   map[string]string
	sampleSpec SampleSpec
	channelMap ChannelMap

	state   SinkState
	flags   Flags
	volume  cvolume.CVolume
	muted   bool
	inputs  map[uint32]sinkinput.Input
	order   []uint32
	nCorked int

	minLatency int64
	maxLatency int64

	refreshVolume bool
	refreshMute   bool
	lastVolume    cvolume.CVolume
	lastMute      bool

	monitor *Monitor
	silence memchunk.Memchunk
	pool    *memchunk.Pool

	hooks DriverHooks

	queue      *msgQueue
	threadInfo *threadInfo

	nameRegistry  *corefacing.NameRegistry
	hookBus       *corefacing.HookBus
	subscriptions *corefacing.SubscriptionBus

	log Logger
}

// New validates b, registers the sink's name, fires SINK_NEW and
// SINK_FIXATE, builds the Sink and its monitor, and returns it in
// state INIT. It never transitions the sink out of INIT.
func New(ctx context.Context, index uint32, b Builder) (*Sink, error) {
	if b.Name == "" {
		return nil, ErrEmptyName
	}
	if !utf8.ValidString(b.Name) || !utf8.ValidString(b.DriverName) {
		return nil, ErrInvalidUTF8
	}
	channelMap, err := validateSpecAndMap(b.SampleSpec, b.ChannelMap)
	if err != nil {
		return nil, err
	}
	volume := b.Volume
	if volume == nil {
		volume = cvolume.NewIdentity(b.SampleSpec.NumChannels)
	}
	if !volume.Valid(b.SampleSpec.NumChannels) {
		return nil, fmt.Errorf("sink: volume has %d channels, sample spec has %d", len(volume), b.SampleSpec.NumChannels)
	}

	nameReg := b.NameRegistry
	if nameReg == nil {
		nameReg = corefacing.NewNameRegistry()
	}
	registeredName, err := nameReg.Register(b.Name, b.NameFail)
	if err != nil {
		return nil, err
	}

	hookBus := b.HookBus
	if hookBus == nil {
		hookBus = corefacing.NewHookBus()
	}
	if err := hookBus.Fire(ctx, corefacing.HookSinkNew, nil); err != nil {
		nameReg.Unregister(registeredName)
		return nil, fmt.Errorf("%w: %v", ErrVetoed, err)
	}
	if err := hookBus.Fire(ctx, corefacing.HookSinkFixate, nil); err != nil {
		nameReg.Unregister(registeredName)
		return nil, fmt.Errorf("%w: %v", ErrVetoed, err)
	}

	log := b.Logger
	if log == nil {
		log = defaultLogger
	}

	pool := b.Pool
	if pool == nil {
		pool = memchunk.New(b.SampleSpec.FrameSize()*4096, b.SampleSpec.FrameSize()*65536)
	}
	silenceBlock := pool.Alloc(b.SampleSpec.FrameSize() * 1024)
	silence := memchunk.Memchunk{Memblock: silenceBlock, Offset: 0, Length: len(silenceBlock.Bytes())}

	s := &Sink{
		index:         index,
		tag:           newTag(),
		name:          registeredName,
		driverName:    b.DriverName,
		proplist:      b.Proplist,
		sampleSpec:    b.SampleSpec,
		channelMap:    channelMap,
		state:         StateInit,
		flags:         b.Flags,
		volume:        volume,
		muted:         b.Muted,
		lastVolume:    volume.Clone(),
		lastMute:      b.Muted,
		inputs:        make(map[uint32]sinkinput.Input),
		minLatency:    4000,
		maxLatency:    4000,
		silence:       silence,
		pool:          pool,
		nameRegistry:  nameReg,
		hookBus:       hookBus,
		subscriptions: b.Subscriptions,
		log:           log,
	}

	monitor, err := newMonitor(s)
	if err != nil {
		s.unlinkInternal(ctx)
		return nil, err
	}
	s.monitor = monitor

	s.threadInfo = newThreadInfo(s)
	return s, nil
}

// SetQueue injects the async message queue a driver creates with
// NewMsgQueue for this sink's IO thread. Must be called before Put,
// and a goroutine running Sink.Run must be started before Put as well:
// Put's state change is a synchronous round trip through the queue.
func (s *Sink) SetQueue(q *msgQueue) {
	s.queue = q
}

// SetHooks installs driver callbacks. Any subset may be set; unset
// hooks mean "use the software path".
func (s *Sink) SetHooks(h DriverHooks) {
	s.hooks = h
}

// SetLatencyBounds sets the sink's min/max latency, both in
// microseconds. Must satisfy min <= max before Put.
func (s *Sink) SetLatencyBounds(min, max int64) {
	s.minLatency = min
	s.maxLatency = max
}

// Index returns the sink's dense server-wide index. Indices are
// reused once a sink is freed, so Tag is the stable identifier across
// a sink's own lifetime.
func (s *Sink) Index() uint32 { return s.index }

// Tag returns the sink's opaque instance identifier, unique across
// recreation of the same index. Useful for correlating log lines once
// an index has been reused by a later sink.
func (s *Sink) Tag() string { return s.tag }

// Name returns the sink's registered name.
func (s *Sink) Name() string {
	return s.name
}

// SampleSpec returns the sink's immutable format.
func (s *Sink) SampleSpec() SampleSpec { return s.sampleSpec }

// ChannelMap returns the sink's immutable channel map.
func (s *Sink) ChannelMap() ChannelMap { return s.channelMap }

// State returns the control-side state.
func (s *Sink) State() SinkState {
	return s.state
}

// Monitor returns the sink's owned monitor source.
func (s *Sink) Monitor() *Monitor { return s.monitor }

// Description returns the sink's current device description, or the
// empty string if none has been set.
func (s *Sink) Description() string {
	return s.proplist[propDeviceDescription]
}

// SetDescription updates the sink's device-description proplist entry
// and renames the monitor to match. Once the sink is linked it also
// publishes a CHANGE event and fires SINK_PROPLIST_CHANGED. A no-op
// description that already matches the current value (or an empty one
// when no description is set) does nothing.
func (s *Sink) SetDescription(ctx context.Context, description string) {
	old, hadOld := s.proplist[propDeviceDescription]
	if description == "" && !hadOld {
		return
	}
	if hadOld && description != "" && old == description {
		return
	}

	if description != "" {
		if s.proplist == nil {
			s.proplist = make(map[string]string)
		}
		s.proplist[propDeviceDescription] = description
	} else {
		delete(s.proplist, propDeviceDescription)
	}

	name := description
	if name == "" {
		name = s.name
	}
	s.monitor.setDescription(name)

	if s.state != StateInit && s.state != StateUnlinked {
		if s.subscriptions != nil {
			s.subscriptions.Publish(corefacing.EventChange, s.index)
		}
		_ = s.hookBus.Fire(ctx, corefacing.HookSinkProplistChanged, s)
	}
}

// Put transitions the sink from INIT to IDLE, publishes the monitor,
// and fires SINK_PUT.
func (s *Sink) Put(ctx context.Context) error {
	if s.state != StateInit {
		return ErrPutTwice
	}
	if s.queue == nil {
		return ErrQueueNotSet
	}
	if s.minLatency > s.maxLatency {
		return ErrLatencyBounds
	}
	if s.hooks.SetState == nil || s.flags&FlagHWVolumeCtrl == 0 {
		s.flags |= FlagDecibelVolume
	}
	if err := s.setStateInternal(ctx, StateIdle); err != nil {
		return err
	}
	if err := s.monitor.put(ctx); err != nil {
		return err
	}
	if s.subscriptions != nil {
		s.subscriptions.Publish(corefacing.EventNew, s.index)
	}
	_ = s.hookBus.Fire(ctx, corefacing.HookSinkPut, s)
	return nil
}

// Unlink tears the sink down: kills attached inputs, unlinks the
// monitor, and marks the sink UNLINKED. It is idempotent.
func (s *Sink) Unlink(ctx context.Context) error {
	return s.unlinkInternal(ctx)
}

func (s *Sink) unlinkInternal(ctx context.Context) error {
	wasLinked := s.state != StateUnlinked && s.state != StateInit
	if s.state == StateUnlinked {
		return nil
	}
	if wasLinked {
		_ = s.hookBus.Fire(ctx, corefacing.HookSinkUnlink, s)
	}
	s.nameRegistry.Unregister(s.name)

	// Drain attached inputs: notify each with Kill, then remove it.
	// Removal is the sink's job, not the input's — sinkinput.Input has
	// no way back to the map it lives in — so Kill is purely a
	// notification telling the input its sink is going away.
	for _, idx := range s.order {
		if input, ok := s.inputs[idx]; ok {
			input.Kill()
			delete(s.inputs, idx)
		}
	}
	s.order = nil
	s.nCorked = 0

	s.state = StateUnlinked
	s.hooks = DriverHooks{}
	if s.monitor != nil {
		s.monitor.unlink(ctx)
	}
	if s.subscriptions != nil {
		s.subscriptions.Publish(corefacing.EventRemove, s.index)
	}
	if wasLinked {
		_ = s.hookBus.Fire(ctx, corefacing.HookSinkUnlinkPost, s)
	}
	return nil
}

// Unref frees the sink. There is no reference count: every call frees
// the sink, releasing its silence chunk and clearing its name, driver
// and proplist, and fails with ErrInputsStillLinked while inputs remain
// attached.
func (s *Sink) Unref() error {
	return s.free()
}

func (s *Sink) free() error {
	if len(s.inputs) != 0 {
		return ErrInputsStillLinked
	}
	if s.silence.Memblock != nil {
		s.silence.Release()
		s.silence = memchunk.Memchunk{}
	}
	s.name = ""
	s.driverName = ""
	s.proplist = nil
	return nil
}
