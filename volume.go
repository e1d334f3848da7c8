package sink

import (
	"context"

	"github.com/audiocore/sink/corefacing"
	"github.com/audiocore/sink/cvolume"
)

// SetVolume sets the sink's software volume, routes it to the driver
// hook when present, and otherwise (or on driver failure) pushes it to
// the IO thread for the mixer to apply. A failing driver hook disables
// itself permanently: the sink falls back to the software path for
// every later call rather than retrying a hook already known to be
// broken.
func (s *Sink) SetVolume(ctx context.Context, v cvolume.CVolume) error {
	if !v.Valid(s.sampleSpec.NumChannels) {
		return ErrInvalidSampleSpec
	}
	s.volume = v.Clone()

	handled := false
	if s.hooks.SetVolume != nil {
		if err := s.hooks.SetVolume(v.Clone()); err != nil {
			s.log.Debugf("sink %d (%s): driver SetVolume hook failed, disabling: %v", s.index, s.tag, err)
			s.hooks.SetVolume = nil
		} else {
			handled = true
		}
	}
	if !handled {
		if s.queue != nil {
			s.queue.post(&message{code: msgSetVolume, volume: v.Clone()})
		} else {
			s.threadInfo.softVolume = v.Clone()
		}
	}

	s.refreshVolume = true
	if s.subscriptions != nil {
		s.subscriptions.Publish(corefacing.EventChange, s.index)
	}
	return nil
}

// GetVolume returns the sink's current software volume. If a refresh
// was requested since the last SetVolume, it first tries the driver
// hook (disabling it permanently on failure, as SetVolume does), then
// falls back to a synchronous round trip through the IO thread when
// no hook is set. A value that differs from the one last reported
// publishes a CHANGE event.
func (s *Sink) GetVolume(ctx context.Context) (cvolume.CVolume, error) {
	if s.refreshVolume {
		switch {
		case s.hooks.GetVolume != nil:
			v, err := s.hooks.GetVolume()
			if err != nil {
				s.log.Debugf("sink %d (%s): driver GetVolume hook failed, disabling: %v", s.index, s.tag, err)
				s.hooks.GetVolume = nil
			} else {
				s.volume = v
			}
		default:
			if v, err := s.IOVolume(); err == nil {
				s.volume = v
			}
		}
		s.refreshVolume = false
	}
	if !s.volume.Equal(s.lastVolume) {
		s.lastVolume = s.volume.Clone()
		if s.subscriptions != nil {
			s.subscriptions.Publish(corefacing.EventChange, s.index)
		}
	}
	return s.volume.Clone(), nil
}

// SetMute is the boolean analog of SetVolume, with the same
// self-disabling driver hook policy.
func (s *Sink) SetMute(ctx context.Context, muted bool) error {
	s.muted = muted

	handled := false
	if s.hooks.SetMute != nil {
		if err := s.hooks.SetMute(muted); err != nil {
			s.log.Debugf("sink %d (%s): driver SetMute hook failed, disabling: %v", s.index, s.tag, err)
			s.hooks.SetMute = nil
		} else {
			handled = true
		}
	}
	if !handled {
		if s.queue != nil {
			s.queue.post(&message{code: msgSetMute, mute: muted})
		} else {
			s.threadInfo.softMuted = muted
		}
	}

	s.refreshMute = true
	if s.subscriptions != nil {
		s.subscriptions.Publish(corefacing.EventChange, s.index)
	}
	return nil
}

// GetMute returns the sink's current mute state, refreshing it from the
// driver hook or, failing that, the IO thread, on the same policy as
// GetVolume, and publishes a CHANGE event when the observed value
// differs from the one last reported.
func (s *Sink) GetMute(ctx context.Context) (bool, error) {
	if s.refreshMute {
		switch {
		case s.hooks.GetMute != nil:
			v, err := s.hooks.GetMute()
			if err != nil {
				s.log.Debugf("sink %d (%s): driver GetMute hook failed, disabling: %v", s.index, s.tag, err)
				s.hooks.GetMute = nil
			} else {
				s.muted = v
			}
		default:
			if v, err := s.IOMute(); err == nil {
				s.muted = v
			}
		}
		s.refreshMute = false
	}
	if s.muted != s.lastMute {
		s.lastMute = s.muted
		if s.subscriptions != nil {
			s.subscriptions.Publish(corefacing.EventChange, s.index)
		}
	}
	return s.muted, nil
}

// IOVolume queries the IO thread's own software volume directly,
// bypassing the control side's cached copy. Useful for diagnostics
// and tests that want to confirm a SET_VOLUME message was actually
// applied on the IO side.
func (s *Sink) IOVolume() (cvolume.CVolume, error) {
	if s.queue == nil {
		s.threadInfo.mu.Lock()
		defer s.threadInfo.mu.Unlock()
		return s.threadInfo.softVolume.Clone(), nil
	}
	res := s.queue.send(&message{code: msgGetVolume})
	if !res.ok {
		return nil, ErrIOFailure
	}
	return res.volume, nil
}

// IOMute is the boolean analog of IOVolume.
func (s *Sink) IOMute() (bool, error) {
	if s.queue == nil {
		s.threadInfo.mu.Lock()
		defer s.threadInfo.mu.Unlock()
		return s.threadInfo.softMuted, nil
	}
	res := s.queue.send(&message{code: msgGetMute})
	if !res.ok {
		return false, ErrIOFailure
	}
	return res.mute, nil
}
