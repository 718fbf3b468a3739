package accel

import "sync"

// Session owns one opened device. Components receive the session explicitly;
// nothing in the pipeline reaches for a process-wide device.
type Session struct {
	dev    Device
	info   Info
	limits Limits

	closeOnce sync.Once
	closeErr  error
}

func NewSession(dev Device) *Session {
	return &Session{dev: dev, info: dev.Info(), limits: dev.Limits()}
}

func (s *Session) Device() Device { return s.dev }
func (s *Session) Info() Info     { return s.info }
func (s *Session) Limits() Limits { return s.limits }

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.dev.Close()
	})
	return s.closeErr
}
