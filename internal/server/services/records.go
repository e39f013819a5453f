package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// BulkItem is one entry of a bulk call. An empty ID means the caller did
// not supply one. Err, when set, is the reason the entry could not be read
// and fails only this entry.
type BulkItem struct {
	ID    string
	Patch records.Patch
	Err   error
}

// BulkResult reports a batch where every item was tried independently.
type BulkResult struct {
	SuccessCount int
	FailedCount  int
	Errors       []string
}

var errNotOwned = common.E(common.KindNotFound, "not found or not owned by user")

func (r *BulkResult) fail(i int, err error) {
	if errors.Is(err, common.ErrRecordNotFound) {
		err = errNotOwned
	}
	r.FailedCount++
	r.Errors = append(r.Errors, fmt.Sprintf("record %d: %s", i+1, common.PublicMessage(err)))
}

// RecordService creates, changes and removes records owned by the caller.
// Every call runs on the principal's connection.
type RecordService struct {
	repomanager repomanager.RepositoryManager
}

func NewRecordService(m repomanager.RepositoryManager) *RecordService {
	return &RecordService{repomanager: m}
}

// Add stores one record. Amount, category and kind are required; the other
// columns fall back to their defaults.
func (s *RecordService) Add(ctx context.Context, p *Principal, patch records.Patch) (string, error) {
	var missing []string
	if patch.Amount == nil {
		missing = append(missing, "amount")
	}
	if patch.Category == nil || strings.TrimSpace(*patch.Category) == "" {
		missing = append(missing, "category")
	}
	if patch.Kind == nil {
		missing = append(missing, "kind")
	}
	if len(missing) > 0 {
		return "", common.Validationf("missing fields: %s", strings.Join(missing, ", "))
	}

	d, err := records.BuildDiff(patch)
	if err != nil {
		return "", err
	}

	return s.repomanager.Records(p.Conn).Insert(ctx, p.User.ID, d)
}

// BulkAdd runs Add for every item. Item IDs are ignored.
func (s *RecordService) BulkAdd(ctx context.Context, p *Principal, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, common.Validationf("no records provided")
	}

	res := &BulkResult{}
	for i, it := range items {
		if it.Err != nil {
			res.fail(i, it.Err)
			continue
		}
		if _, err := s.Add(ctx, p, it.Patch); err != nil {
			res.fail(i, err)
			continue
		}
		res.SuccessCount++
	}
	return res, nil
}

// Update applies the supplied fields to one of the caller's records.
func (s *RecordService) Update(ctx context.Context, p *Principal, recordID string, patch records.Patch) error {
	d, err := records.BuildDiff(patch)
	if err != nil {
		return err
	}
	if len(d) == 0 {
		return common.ErrNoFieldsToUpdate
	}

	if err := s.mustOwn(ctx, p, recordID); err != nil {
		return err
	}

	return s.repomanager.Records(p.Conn).Update(ctx, recordID, p.User.ID, d)
}

// BulkUpdate checks ownership of every item before looking at its fields.
func (s *RecordService) BulkUpdate(ctx context.Context, p *Principal, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, common.Validationf("no records provided")
	}

	repo := s.repomanager.Records(p.Conn)
	res := &BulkResult{}
	for i, it := range items {
		if it.Err != nil {
			res.fail(i, it.Err)
			continue
		}
		if it.ID == "" {
			res.fail(i, common.Validationf("missing record_id"))
			continue
		}
		if err := s.mustOwn(ctx, p, it.ID); err != nil {
			res.fail(i, err)
			continue
		}

		d, err := records.BuildDiff(it.Patch)
		if err != nil {
			res.fail(i, err)
			continue
		}
		if err := repo.Update(ctx, it.ID, p.User.ID, d); err != nil {
			res.fail(i, err)
			continue
		}
		res.SuccessCount++
	}
	return res, nil
}

// Delete removes one of the caller's records.
func (s *RecordService) Delete(ctx context.Context, p *Principal, recordID string) error {
	if err := s.mustOwn(ctx, p, recordID); err != nil {
		return err
	}
	return s.repomanager.Records(p.Conn).Delete(ctx, recordID, p.User.ID)
}

// BulkDelete runs Delete for every item. Only IDs are used.
func (s *RecordService) BulkDelete(ctx context.Context, p *Principal, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, common.Validationf("no record ids provided")
	}

	res := &BulkResult{}
	for i, it := range items {
		if it.Err != nil {
			res.fail(i, it.Err)
			continue
		}
		if it.ID == "" {
			res.fail(i, common.Validationf("missing record_id"))
			continue
		}
		if err := s.Delete(ctx, p, it.ID); err != nil {
			res.fail(i, err)
			continue
		}
		res.SuccessCount++
	}
	return res, nil
}

// mustOwn fails with ErrRecordNotFound unless the record exists and belongs
// to the caller. Ids that are not UUIDs cannot match any row.
func (s *RecordService) mustOwn(ctx context.Context, p *Principal, recordID string) error {
	if _, err := uuid.Parse(recordID); err != nil {
		return common.ErrRecordNotFound
	}

	ok, err := s.repomanager.Records(p.Conn).Exists(ctx, recordID, p.User.ID)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrRecordNotFound
	}
	return nil
}
