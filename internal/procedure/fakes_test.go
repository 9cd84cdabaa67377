package procedure

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// fakeSession stands in for one transaction. By default CallProc hands the
// arguments back unchanged, like a plain function call.
type fakeSession struct {
	returned Args
	columns  []string
	rows     func(args Args) RawResult

	callErr, fetchErr, commitErr error

	gotName string
	gotArgs Args
	gotMode Mode

	fetched, committed, rolledBack bool
}

func (s *fakeSession) CallProc(ctx context.Context, name string, args Args, mode Mode) (Args, []string, error) {
	s.gotName, s.gotArgs, s.gotMode = name, args, mode
	if s.callErr != nil {
		return nil, nil, s.callErr
	}
	if s.returned != nil {
		return s.returned, s.columns, nil
	}
	return append(Args{}, args...), nil, nil
}

func (s *fakeSession) Fetch(ctx context.Context) (RawResult, error) {
	s.fetched = true
	if s.fetchErr != nil {
		return RawResult{}, s.fetchErr
	}
	if s.rows == nil {
		return RawResult{Rows: [][]any{}}, nil
	}
	return s.rows(s.gotArgs), nil
}

func (s *fakeSession) Commit(ctx context.Context) error {
	if s.commitErr != nil {
		return s.commitErr
	}
	s.committed = true
	return nil
}

func (s *fakeSession) Rollback(ctx context.Context) error {
	s.rolledBack = true
	return nil
}

// fakePool builds a fresh session per Begin from template.
type fakePool struct {
	mu       sync.Mutex
	template fakeSession
	beginErr error
	sessions []*fakeSession
}

func (p *fakePool) Begin(ctx context.Context) (Session, error) {
	if p.beginErr != nil {
		return nil, p.beginErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.template
	p.sessions = append(p.sessions, &s)
	return &s, nil
}

func (p *fakePool) last() *fakeSession {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[len(p.sessions)-1]
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	b, ok := c.entries[key]
	return b, ok, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = value
	c.ttls[key] = ttl
	return nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// itemsTable returns the rows of a two-column table filtered by id <= args[0].
func itemsTable(args Args) RawResult {
	all := [][]any{{int32(1), "a"}, {int32(2), "b"}}
	max := args[0].(int64)
	res := RawResult{Columns: []string{"id", "name"}, Rows: [][]any{}}
	for _, row := range all {
		if int64(row[0].(int32)) <= max {
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}
