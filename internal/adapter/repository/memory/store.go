// Package memory provides a map-backed implementation of domain.Store.
// It satisfies the same pre/postconditions as the Postgres adapter and is
// the store of choice for tests.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dmcampos/bucketeer-backend/internal/domain"
)

// Ensure Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// Store keeps all six collections in maps and slices. Units of work are
// serialized globally (coarser than the required per-owner serialization,
// which still satisfies the contract) and rolled back by restoring a
// snapshot taken at entry.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	seq uint64

	buckets           map[uuid.UUID]*domain.Bucket
	bucketSeq         map[uuid.UUID]uint64
	moneyBuckets      map[uuid.UUID]*domain.MoneyBucket
	depositEvents     []*domain.DepositEvent
	bucketEntries     []*domain.BucketLedgerEntry
	moneyBucketEntries []*domain.MoneyBucketLedgerEntry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		buckets:      make(map[uuid.UUID]*domain.Bucket),
		bucketSeq:    make(map[uuid.UUID]uint64),
		moneyBuckets: make(map[uuid.UUID]*domain.MoneyBucket),
	}
}

// Buckets returns the bucket repository.
func (s *Store) Buckets() domain.BucketRepository { return &bucketRepository{s} }

// MoneyBuckets returns the money bucket repository.
func (s *Store) MoneyBuckets() domain.MoneyBucketRepository { return &moneyBucketRepository{s} }

// DepositEvents returns the deposit event repository.
func (s *Store) DepositEvents() domain.DepositEventRepository { return &depositEventRepository{s} }

// BucketLedger returns the bucket ledger repository.
func (s *Store) BucketLedger() domain.BucketLedgerRepository { return &bucketLedgerRepository{s} }

// MoneyBucketLedger returns the money bucket ledger repository.
func (s *Store) MoneyBucketLedger() domain.MoneyBucketLedgerRepository {
	return &moneyBucketLedgerRepository{s}
}

// WithinOwner runs fn as one atomic unit of work. On error the snapshot
// taken at entry is restored, so no partial balances or ledger rows
// survive a failed run.
func (s *Store) WithinOwner(ctx context.Context, ownerID uuid.UUID, fn func(domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	seq                uint64
	buckets            map[uuid.UUID]*domain.Bucket
	bucketSeq          map[uuid.UUID]uint64
	moneyBuckets       map[uuid.UUID]*domain.MoneyBucket
	depositEvents      []*domain.DepositEvent
	bucketEntries      []*domain.BucketLedgerEntry
	moneyBucketEntries []*domain.MoneyBucketLedgerEntry
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		seq:                s.seq,
		buckets:            make(map[uuid.UUID]*domain.Bucket, len(s.buckets)),
		bucketSeq:          make(map[uuid.UUID]uint64, len(s.bucketSeq)),
		moneyBuckets:       make(map[uuid.UUID]*domain.MoneyBucket, len(s.moneyBuckets)),
		depositEvents:      make([]*domain.DepositEvent, len(s.depositEvents)),
		bucketEntries:      make([]*domain.BucketLedgerEntry, len(s.bucketEntries)),
		moneyBucketEntries: make([]*domain.MoneyBucketLedgerEntry, len(s.moneyBucketEntries)),
	}
	for id, b := range s.buckets {
		copied := *b
		snap.buckets[id] = &copied
	}
	for id, n := range s.bucketSeq {
		snap.bucketSeq[id] = n
	}
	for id, mb := range s.moneyBuckets {
		copied := *mb
		snap.moneyBuckets[id] = &copied
	}
	copy(snap.depositEvents, s.depositEvents)
	copy(snap.bucketEntries, s.bucketEntries)
	copy(snap.moneyBucketEntries, s.moneyBucketEntries)
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = snap.seq
	s.buckets = snap.buckets
	s.bucketSeq = snap.bucketSeq
	s.moneyBuckets = snap.moneyBuckets
	s.depositEvents = snap.depositEvents
	s.bucketEntries = snap.bucketEntries
	s.moneyBucketEntries = snap.moneyBucketEntries
}

func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// paginate slices a pre-ordered result set into a page.
func paginate[T any](items []T, p domain.Pagination) *domain.Page[T] {
	total := len(items)
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	window := make([]T, end-start)
	copy(window, items[start:end])
	return domain.NewPage(window, total, p)
}
