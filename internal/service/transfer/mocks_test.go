package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/vertextoedge/aaxfetch/internal/domain"
	"github.com/vertextoedge/aaxfetch/internal/domain/vo"
	"github.com/vertextoedge/aaxfetch/internal/port"
)

func testContent(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte((i * 7) % 253)
	}
	return b
}

// fetchStep scripts one Fetch call of mockSource
type fetchStep struct {
	// err is returned instead of a body
	err error

	// cutAfter > 0 ends the body after that many bytes with readErr
	cutAfter int
	readErr  error
	onCut    func()

	// ignoreRange answers with the whole entity
	ignoreRange bool

	// total overrides the size reported by the response
	total *vo.ByteSize
}

type fetchCall struct {
	offset int64
	ranged bool
}

// mockSource implements port.RemoteSource over an in-memory entity
type mockSource struct {
	mu        sync.Mutex
	content   []byte
	ranges    bool
	sizeKnown bool
	probeErrs []error
	steps     []fetchStep
	probes    int
	fetches   []fetchCall
}

func newMockSource(content []byte) *mockSource {
	return &mockSource{content: content, ranges: true, sizeKnown: true}
}

func (m *mockSource) size() vo.ByteSize {
	if !m.sizeKnown {
		return vo.UnknownSize()
	}
	return vo.MustByteSize(int64(len(m.content)))
}

func (m *mockSource) Probe(ctx context.Context, loc domain.Locator) (*domain.RemoteResource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.probes++
	if len(m.probeErrs) > 0 {
		err := m.probeErrs[0]
		m.probeErrs = m.probeErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &domain.RemoteResource{
		TotalSize:      m.size(),
		SupportsRanges: m.ranges,
		Locator:        loc,
	}, nil
}

func (m *mockSource) Fetch(ctx context.Context, loc domain.Locator, offset int64, ranged bool) (*port.RemoteBody, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fetches = append(m.fetches, fetchCall{offset: offset, ranged: ranged})

	var step fetchStep
	if len(m.steps) > 0 {
		step = m.steps[0]
		m.steps = m.steps[1:]
	}
	if step.err != nil {
		return nil, step.err
	}

	total := m.size()
	if step.total != nil {
		total = *step.total
	}

	body := &port.RemoteBody{TotalSize: total}
	data := m.content

	if ranged && m.ranges && !step.ignoreRange {
		if offset >= int64(len(m.content)) {
			return nil, domain.NewRestartError("fetch", domain.ErrRangeNotSatisfiable)
		}
		body.Partial = true
		body.Start = offset
		data = m.content[offset:]
	} else if ranged && offset > 0 {
		return nil, domain.NewRestartError("fetch", domain.ErrServerRejectedRange)
	}

	if step.cutAfter > 0 && step.cutAfter < len(data) {
		readErr := step.readErr
		if readErr == nil {
			readErr = io.ErrUnexpectedEOF
		}
		body.Body = io.NopCloser(&cutReader{r: bytes.NewReader(data[:step.cutAfter]), err: readErr, onCut: step.onCut})
	} else {
		body.Body = io.NopCloser(bytes.NewReader(data))
	}
	return body, nil
}

func (m *mockSource) fetchCalls() []fetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fetchCall(nil), m.fetches...)
}

// cutReader serves r then fails with err
type cutReader struct {
	r     io.Reader
	err   error
	onCut func()
}

func (c *cutReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if err == io.EOF {
		if c.onCut != nil {
			c.onCut()
			c.onCut = nil
		}
		return n, c.err
	}
	return n, err
}

// memStore implements port.LocalStore in memory
type memStore struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// writeLimit > 0 makes writes fail once a file would exceed it
	writeLimit int
	syncErr    error
	truncates  int
}

func newMemStore() *memStore {
	return &memStore{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (s *memStore) put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), data...)
}

func (s *memStore) get(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.files[path]...)
}

func (s *memStore) Extent(path string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[path] {
		return 0, fmt.Errorf("%w: %s", domain.ErrNotRegularFile, path)
	}
	return int64(len(s.files[path])), nil
}

func (s *memStore) OpenAppend(path string, offset int64) (port.AppendFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs[path] {
		return nil, errors.New("is a directory")
	}
	if int64(len(s.files[path])) != offset {
		return nil, fmt.Errorf("%w: on disk %d, planned %d", domain.ErrExtentMismatch, len(s.files[path]), offset)
	}
	if _, ok := s.files[path]; !ok {
		s.files[path] = []byte{}
	}
	return &memFile{store: s, path: path}, nil
}

func (s *memStore) Truncate(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.truncates++
	s.files[path] = []byte{}
	return nil
}

func (s *memStore) Digest(path string, algo domain.DigestAlgorithm) ([]byte, error) {
	h, err := domain.NewHasher(algo)
	if err != nil {
		return nil, err
	}
	h.Write(s.get(path))
	return h.Sum(nil), nil
}

type memFile struct {
	store *memStore
	path  string
}

func (f *memFile) Write(p []byte) (int, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()

	data := f.store.files[f.path]
	if limit := f.store.writeLimit; limit > 0 && len(data)+len(p) > limit {
		n := limit - len(data)
		if n < 0 {
			n = 0
		}
		f.store.files[f.path] = append(data, p[:n]...)
		return n, errors.New("no space left on device")
	}
	f.store.files[f.path] = append(data, p...)
	return len(p), nil
}

func (f *memFile) Sync() error {
	return f.store.syncErr
}

func (f *memFile) Truncate(size int64) error {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.files[f.path] = f.store.files[f.path][:size]
	return nil
}

func (f *memFile) Close() error { return nil }

// mockSpace implements port.SpaceChecker
type mockSpace struct {
	free uint64
	err  error
}

func (m *mockSpace) FreeBytes(path string) (uint64, error) {
	return m.free, m.err
}

// mockJournal implements port.JournalRepository
type mockJournal struct {
	mu        sync.Mutex
	transfers map[string]*domain.TransferRecord
	attempts  []*domain.AttemptRecord
}

func newMockJournal() *mockJournal {
	return &mockJournal{transfers: make(map[string]*domain.TransferRecord)}
}

func (m *mockJournal) StartTransfer(rec *domain.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.transfers[rec.ID] = &cp
	return nil
}

func (m *mockJournal) RecordAttempt(rec *domain.AttemptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, rec)
	return nil
}

func (m *mockJournal) FinishTransfer(rec *domain.TransferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.transfers[rec.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *rec
	m.transfers[rec.ID] = &cp
	return nil
}

func (m *mockJournal) GetTransfer(id string) (*domain.TransferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.transfers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (m *mockJournal) ListAttempts(transferID string) ([]*domain.AttemptRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AttemptRecord
	for _, a := range m.attempts {
		if a.TransferID == transferID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockJournal) RecentTransfers(limit int) ([]*domain.TransferRecord, error) {
	return nil, nil
}

// sleepRecorder is a Sleeper that records delays without waiting
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}
