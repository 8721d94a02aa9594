package buffer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			s, err := Open(Options{Backend: BackendMemory})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"pebble-mem": func(t *testing.T) Store {
			s, err := Open(Options{Backend: BackendPebble})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"pebble-dir": func(t *testing.T) Store {
			s, err := Open(Options{Backend: BackendPebble, DataDir: filepath.Join(t.TempDir(), "buf")})
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "redis"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestAppendAssignsPositionsInOrder(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				pos, err := s.Append(ctx, Record(fmt.Sprintf(`{"n":%d}`, i)))
				if err != nil {
					t.Fatalf("append: %v", err)
				}
				if pos != i {
					t.Fatalf("pos=%d want %d", pos, i)
				}
			}
			if s.Len() != 5 {
				t.Fatalf("len=%d", s.Len())
			}
			for i := 0; i < 5; i++ {
				rec, err := s.Get(i)
				if err != nil {
					t.Fatalf("get %d: %v", i, err)
				}
				if want := fmt.Sprintf(`{"n":%d}`, i); string(rec) != want {
					t.Fatalf("get %d = %s want %s", i, rec, want)
				}
				e, err := s.Entry(i)
				if err != nil {
					t.Fatalf("entry %d: %v", i, err)
				}
				if e.Position != i || e.IngestedAt.IsZero() {
					t.Fatalf("entry %d: %+v", i, e)
				}
			}
			if err := s.Check(); err != nil {
				t.Fatalf("check: %v", err)
			}
		})
	}
}

func TestGetOutOfRange(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			if _, err := s.Get(0); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("empty get: %v", err)
			}
			_, _ = s.Append(context.Background(), Record(`{}`))
			if _, err := s.Get(-1); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("negative get: %v", err)
			}
			if _, err := s.Get(1); !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("past-end get: %v", err)
			}
		})
	}
}

func TestAppendCopiesInput(t *testing.T) {
	s := NewMemory()
	buf := []byte(`{"a":1}`)
	_, _ = s.Append(context.Background(), Record(buf))
	buf[2] = 'b'
	rec, _ := s.Get(0)
	if string(rec) != `{"a":1}` {
		t.Fatalf("stored record changed with caller buffer: %s", rec)
	}
}

func TestConcurrentAppendsAreGapFree(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			const writers, each = 8, 25
			var (
				wg   sync.WaitGroup
				mu   sync.Mutex
				seen = make(map[int]string)
			)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < each; i++ {
						body := fmt.Sprintf(`{"w":%d,"i":%d}`, w, i)
						pos, err := s.Append(context.Background(), Record(body))
						if err != nil {
							t.Errorf("append: %v", err)
							return
						}
						mu.Lock()
						seen[pos] = body
						mu.Unlock()
					}
				}(w)
			}
			wg.Wait()

			if s.Len() != writers*each {
				t.Fatalf("len=%d want %d", s.Len(), writers*each)
			}
			for pos := 0; pos < writers*each; pos++ {
				body, ok := seen[pos]
				if !ok {
					t.Fatalf("gap at %d", pos)
				}
				rec, err := s.Get(pos)
				if err != nil || string(rec) != body {
					t.Fatalf("pos %d = %s, %v; want %s", pos, rec, err, body)
				}
			}
		})
	}
}

func TestWaitWakesOnAppend(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			done := make(chan bool, 1)
			go func() { done <- s.Wait(context.Background(), 0, 5*time.Second) }()

			time.Sleep(20 * time.Millisecond)
			if _, err := s.Append(context.Background(), Record(`{}`)); err != nil {
				t.Fatalf("append: %v", err)
			}
			select {
			case ok := <-done:
				if !ok {
					t.Fatalf("wait returned false after append")
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("wait did not wake on append")
			}
		})
	}
}

func TestWaitReturnsImmediatelyWhenAhead(t *testing.T) {
	s := NewMemory()
	_, _ = s.Append(context.Background(), Record(`{}`))
	start := time.Now()
	if !s.Wait(context.Background(), 0, time.Second) {
		t.Fatalf("expected true")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("wait blocked although a record was available")
	}
}

func TestWaitTimeoutAndCancel(t *testing.T) {
	s := NewMemory()
	start := time.Now()
	if s.Wait(context.Background(), 0, 30*time.Millisecond) {
		t.Fatalf("expected timeout")
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("returned before timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if s.Wait(ctx, 0, 0) {
		t.Fatalf("expected false on canceled context")
	}
}

func TestCloseRejectsAppends(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			_ = s.Close()
			if _, err := s.Append(context.Background(), Record(`{}`)); !errors.Is(err, ErrClosed) {
				t.Fatalf("append after close: %v", err)
			}
			if err := s.Check(); !errors.Is(err, ErrClosed) {
				t.Fatalf("check after close: %v", err)
			}
		})
	}
}

func TestPebbleDirIsWipedAtOpen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "buf")
	s1, err := Open(Options{Backend: BackendPebble, DataDir: dir})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, _ = s1.Append(context.Background(), Record(`{"old":true}`))
	_ = s1.Close()

	s2, err := Open(Options{Backend: BackendPebble, DataDir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if s2.Len() != 0 {
		t.Fatalf("len after reopen = %d", s2.Len())
	}
	pos, _ := s2.Append(context.Background(), Record(`{"new":true}`))
	if pos != 0 {
		t.Fatalf("first position after reopen = %d", pos)
	}
}

func TestRecordMarshalJSON(t *testing.T) {
	b, _ := Record(`{"a":1}`).MarshalJSON()
	if string(b) != `{"a":1}` {
		t.Fatalf("got %s", b)
	}
	b, _ = Record(nil).MarshalJSON()
	if string(b) != "null" {
		t.Fatalf("got %s", b)
	}
}
