// Package store journals finished operations through gorm. Writes go through
// a buffered channel so the operation path never waits on the database.
package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

const recordBuffer = 32

type Store struct {
	ctx        context.Context
	wg         sync.WaitGroup
	logger     zerolog.Logger
	recordChan chan *OperationRecord
	dao        *Dao
}

func NewStore(ctx context.Context, dao *Dao, logger zerolog.Logger) *Store {
	return &Store{
		ctx:        ctx,
		logger:     logger.With().Str("component", "store").Logger(),
		recordChan: make(chan *OperationRecord, recordBuffer),
		dao:        dao,
	}
}

func (s *Store) Start() {
	s.wg.Add(1)
	go s.store()
}

// Stop waits for the writer to flush; cancel the store's context first.
func (s *Store) Stop() {
	s.wg.Wait()
}

func (s *Store) store() {
	defer s.wg.Done()
	for {
		select {
		case rec := <-s.recordChan:
			s.save(rec)
		case <-s.ctx.Done():
			for {
				select {
				case rec := <-s.recordChan:
					s.save(rec)
				default:
					return
				}
			}
		}
	}
}

func (s *Store) save(rec *OperationRecord) {
	if err := s.dao.SaveOperation(rec); err != nil {
		s.logger.Error().Err(err).Str("id", rec.Id).Str("operation", rec.Operation).Msg("save operation")
	}
}

// StoreOperation queues rec. It drops the record once the store is stopping.
func (s *Store) StoreOperation(rec *OperationRecord) {
	select {
	case s.recordChan <- rec:
	case <-s.ctx.Done():
		s.logger.Warn().Str("id", rec.Id).Msg("store stopped, record dropped")
	}
}

func (s *Store) GetOperation(id string) (*OperationRecord, error) {
	return s.dao.SelectOperation(id)
}

func (s *Store) GetRecent(operation string, limit int) ([]*OperationRecord, error) {
	return s.dao.SelectRecent(operation, limit)
}
