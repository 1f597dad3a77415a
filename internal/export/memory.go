package export

import (
	"context"
	"sync"
)

// Memory is an in-process exporter for tests and AMQP-less setups.
type Memory struct {
	mu   sync.Mutex
	rows []Row

	// Fail makes every append return this error, for failure-path tests.
	Fail error
}

var _ LedgerExporter = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AppendRow(_ context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.rows = append(m.rows, row)
	return nil
}

// Rows returns a copy of everything appended so far.
func (m *Memory) Rows() []Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Row(nil), m.rows...)
}
