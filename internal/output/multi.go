package output

import "errors"

// MultiSink fans every call out to its sinks in order.
type MultiSink []Sink

var _ Sink = MultiSink(nil)

// Begin starts each sink; if one fails, the ones already started are aborted.
func (m MultiSink) Begin() error {
	for i, s := range m {
		if err := s.Begin(); err != nil {
			for _, started := range m[:i] {
				err = errors.Join(err, started.Abort())
			}
			return err
		}
	}
	return nil
}

func (m MultiSink) WritePage(rec PageRecord) error {
	for _, s := range m {
		if err := s.WritePage(rec); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

func (m MultiSink) Abort() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Abort())
	}
	return errors.Join(errs...)
}
