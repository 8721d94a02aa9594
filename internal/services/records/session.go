package recordsvc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rzbill/pubrt/internal/buffer"
	"github.com/rzbill/pubrt/pkg/id"
	logpkg "github.com/rzbill/pubrt/pkg/log"
)

// Session is one stream connection: a cursor into the buffer that replays
// from position 0 and then tails new appends.
type Session struct {
	id     id.ID
	svc    *Service
	filter celFilter
	limit  int
	logger logpkg.Logger

	state     atomic.Int32
	cursor    atomic.Int64
	delivered atomic.Int64
}

// ID returns the session's sortable identifier.
func (s *Session) ID() id.ID { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Cursor returns the next position the session will read.
func (s *Session) Cursor() int { return int(s.cursor.Load()) }

// Delivered returns how many records were sent to the sink.
func (s *Session) Delivered() int { return int(s.delivered.Load()) }

// Run streams records to sink until the sink's context is done, a write
// fails, or the delivery limit is reached. It returns nil on client
// disconnect or limit, and the write error otherwise. Run may be called once.
func (s *Session) Run(sink Sink) error {
	if !s.state.CompareAndSwap(int32(StateInit), int32(StateStreaming)) {
		return errors.New("session already started")
	}
	s.cursor.Store(0)

	m := s.svc.metrics
	closed := m.StreamOpened()
	start := time.Now()
	s.logger.Info("stream opened")

	err := s.loop(sink)

	s.state.Store(int32(StateClosed))
	closed()
	fields := []logpkg.Field{
		logpkg.Int("cursor", s.Cursor()),
		logpkg.Int("delivered", s.Delivered()),
		logpkg.Duration("open", time.Since(start)),
	}
	if err != nil {
		s.logger.Debug("stream closed on write failure", append(fields, logpkg.Err(err))...)
		return err
	}
	s.logger.Info("stream closed", fields...)
	return nil
}

func (s *Session) loop(sink Sink) error {
	ctx := sink.Context()
	store := s.svc.store
	m := s.svc.metrics
	pending := 0

	flush := func() error {
		if pending == 0 {
			return nil
		}
		pending = 0
		return sink.Flush()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		cursor := s.Cursor()
		if cursor < store.Len() {
			e, err := store.Entry(cursor)
			if err != nil {
				if errors.Is(err, buffer.ErrClosed) {
					return nil
				}
				return fmt.Errorf("read %d: %w", cursor, err)
			}
			s.cursor.Store(int64(cursor + 1))
			if !s.filter.Eval(e) {
				continue
			}
			if err := sink.Send(Item{Position: e.Position, Record: e.Record, IngestedAt: e.IngestedAt}); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("send %d: %w", cursor, err)
			}
			m.EventDelivered()
			pending++
			n := s.delivered.Add(1)
			if s.limit > 0 && int(n) >= s.limit {
				return s.flushOrNil(ctx, flush())
			}
			if pending >= flushEvery {
				if err := flush(); err != nil {
					return s.flushOrNil(ctx, err)
				}
			}
			continue
		}

		if err := flush(); err != nil {
			return s.flushOrNil(ctx, err)
		}
		// Parked without holding any store lock.
		store.Wait(ctx, cursor, s.svc.pollInterval)
	}
}

func (s *Session) flushOrNil(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("flush: %w", err)
}
