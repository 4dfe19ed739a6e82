// Package mock provides an in-memory test double for [store.Store].
//
// The mock records every method call for assertion in tests and exposes
// exported *Err fields that control what each method returns. It is safe for
// concurrent use via an internal [sync.Mutex].
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/adrpadua/battlereport-hud/pkg/store"
)

// Call records the name and arguments of a single method invocation.
type Call struct {
	// Method is the name of the interface method that was called.
	Method string

	// Args holds the non-context arguments passed to the method, in order.
	Args []any
}

// Store is a configurable in-memory [store.Store]. Saved reports are held in
// a map, so Get and List behave like the real store unless an *Err field
// forces a failure.
type Store struct {
	mu sync.Mutex

	calls   []Call
	reports map[string]store.Report

	// SaveReportErr is returned by [Store.SaveReport] when non-nil.
	SaveReportErr error

	// GetReportErr is returned by [Store.GetReport] when non-nil.
	GetReportErr error

	// ListReportsErr is returned by [Store.ListReports] when non-nil.
	ListReportsErr error
}

var _ store.Store = (*Store)(nil)

// Calls returns a copy of all recorded method invocations.
func (m *Store) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times the named method was invoked.
func (m *Store) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// SaveReport implements [store.Store].
func (m *Store) SaveReport(_ context.Context, report store.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "SaveReport", Args: []any{report}})
	if m.SaveReportErr != nil {
		return m.SaveReportErr
	}
	if m.reports == nil {
		m.reports = make(map[string]store.Report)
	}
	m.reports[report.ID] = report
	return nil
}

// GetReport implements [store.Store].
func (m *Store) GetReport(_ context.Context, id string) (*store.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "GetReport", Args: []any{id}})
	if m.GetReportErr != nil {
		return nil, m.GetReportErr
	}
	report, ok := m.reports[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &report, nil
}

// ListReports implements [store.Store].
func (m *Store) ListReports(_ context.Context, limit, offset int) ([]store.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "ListReports", Args: []any{limit, offset}})
	if m.ListReportsErr != nil {
		return nil, m.ListReportsErr
	}

	all := make([]store.Summary, 0, len(m.reports))
	for _, r := range m.reports {
		all = append(all, store.Summary{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []store.Summary{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Close implements [store.Store].
func (m *Store) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Method: "Close"})
}
