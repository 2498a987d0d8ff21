package docstore

import (
	"context"
	"strconv"
	"sync"
)

// MemoryBackend keeps the document in process memory. Data lives as long as
// the process. The version is a counter bumped on every save, checked under
// the same lock that guards the document.
type MemoryBackend struct {
	mu      sync.Mutex
	doc     *Document
	version uint64
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{doc: NewDocument()}
}

func (m *MemoryBackend) Load(_ context.Context) (*Document, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.doc.Clone()
	if err != nil {
		return nil, "", err
	}
	return doc, strconv.FormatUint(m.version, 10), nil
}

func (m *MemoryBackend) Save(_ context.Context, doc *Document, version string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if version != strconv.FormatUint(m.version, 10) {
		return "", ErrVersionConflict
	}

	stored, err := doc.Clone()
	if err != nil {
		return "", err
	}
	m.doc = stored
	m.version++
	return strconv.FormatUint(m.version, 10), nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
