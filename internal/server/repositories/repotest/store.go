// Package repotest provides an in-memory RepositoryManager for tests of
// the layers above the repositories.
package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/dbx"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/users"
	"github.com/shopspring/decimal"
)

// Store keeps users, challenges and records in memory and mirrors the
// PostgreSQL repositories closely enough for service tests: lookups return
// common.ErrorNotFound, record columns get the same defaults, and statements
// are scoped by owner.
type Store struct {
	mu         sync.Mutex
	users      map[string]*models.User
	challenges map[string]*models.Challenge
	records    map[string]*models.Record
	seq        int

	// FindErr fails every user lookup.
	FindErr error
	// ListErr fails every record listing.
	ListErr error
	// SetErrs are returned by successive challenge Set calls; nil entries
	// let the call through.
	SetErrs []error
}

func NewStore() *Store {
	return &Store{
		users:      make(map[string]*models.User),
		challenges: make(map[string]*models.Challenge),
		records:    make(map[string]*models.Record),
	}
}

// Manager returns a RepositoryManager over s. The DB handle passed to the
// factories is ignored.
func (s *Store) Manager() repomanager.RepositoryManager {
	return &manager{s: s}
}

type manager struct{ s *Store }

func (m *manager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *manager) Users(dbx.DBTX) users.Repository              { return (*userRepo)(m.s) }
func (m *manager) Challenges(dbx.DBTX) challenges.Repository    { return (*challengeRepo)(m.s) }
func (m *manager) Records(dbx.DBTX) records.Repository          { return (*recordRepo)(m.s) }

func challengeKey(userID string, p models.Purpose) string { return userID + "/" + string(p) }

// AddUser stores a copy of u as is.
func (s *Store) AddUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	out := cp
	return &out
}

// User returns a copy of the user or nil.
func (s *Store) User(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) SetEmailVerified(id string, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.EmailVerified = v
	}
}

// Challenge returns a copy of the live challenge or nil.
func (s *Store) Challenge(userID string, p models.Purpose) *models.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.challenges[challengeKey(userID, p)]; ok {
		cp := *c
		return &cp
	}
	return nil
}

// PutChallenge stores c as is, attempts included.
func (s *Store) PutChallenge(c *models.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.challenges[challengeKey(c.UserID, c.Purpose)] = &cp
}

// Record returns a copy of the record or nil.
func (s *Store) Record(id string) *models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[id]; ok {
		cp := *r
		return &cp
	}
	return nil
}

func (s *Store) RecordCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// --- users ---

type userRepo Store

func (r *userRepo) find(match func(*models.User) bool) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	for _, u := range s.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.UserName == username })
}

func (r *userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *userRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *userRepo) Insert(_ context.Context, u *models.User) (*models.User, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.users {
		if x.UserName == u.UserName {
			return nil, common.ErrUsernameTaken
		}
		if x.Email == u.Email {
			return nil, common.ErrEmailTaken
		}
	}
	cp := *u
	cp.EmailVerified = false
	cp.Active = true
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (r *userRepo) update(id string, fn func(*models.User)) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r *userRepo) SetPasswordHash(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r *userRepo) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) {
		u.EmailVerified = true
		delete(r.challenges, challengeKey(id, models.PurposeVerifyEmail))
	})
}

func (r *userRepo) SetPasswordAndClearReset(_ context.Context, id, hash string) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = hash
		delete(r.challenges, challengeKey(id, models.PurposeResetPassword))
	})
}

// --- challenges ---

type challengeRepo Store

func (r *challengeRepo) Set(_ context.Context, c *models.Challenge) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.SetErrs) > 0 {
		err := s.SetErrs[0]
		s.SetErrs = s.SetErrs[1:]
		if err != nil {
			return err
		}
	}
	for k, x := range s.challenges {
		if x.Purpose == c.Purpose && x.Code == c.Code && k != challengeKey(c.UserID, c.Purpose) {
			return challenges.ErrCodeCollision
		}
	}
	cp := *c
	cp.Attempts = 0
	s.challenges[challengeKey(c.UserID, c.Purpose)] = &cp
	return nil
}

func (r *challengeRepo) Clear(_ context.Context, userID string, p models.Purpose) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, challengeKey(userID, p))
	return nil
}

func (r *challengeRepo) FindByCode(_ context.Context, p models.Purpose, code string) (*models.Challenge, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.challenges {
		if c.Purpose == p && c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

// --- records ---

type recordRepo Store

func apply(rec *models.Record, d records.Diff) {
	for _, c := range d {
		switch c.Field {
		case records.FieldAmount:
			rec.Amount = c.Value.(decimal.Decimal)
		case records.FieldCategory:
			rec.Category = c.Value.(string)
		case records.FieldOccurredOn:
			rec.OccurredOn = c.Value.(time.Time)
		case records.FieldTags:
			rec.Tags = c.Value.(string)
		case records.FieldPaymentMethod:
			rec.PaymentMethod = c.Value.(string)
		case records.FieldStatus:
			rec.Status = c.Value.(string)
		case records.FieldFrequency:
			rec.Frequency = c.Value.(string)
		case records.FieldNotes:
			rec.Notes = c.Value.(string)
		case records.FieldKind:
			rec.Kind = c.Value.(string)
		}
	}
}

func (r *recordRepo) Insert(_ context.Context, userID string, d records.Diff) (string, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("00000000-0000-0000-0000-%012d", s.seq)
	now := time.Now()
	rec := &models.Record{
		ID:         id,
		UserID:     userID,
		OccurredOn: time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Status:     models.StatusCompleted,
		Frequency:  "none",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	apply(rec, d)
	s.records[id] = rec
	return id, nil
}

func (r *recordRepo) Exists(_ context.Context, recordID, userID string) (bool, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recordID]
	return ok && rec.UserID == userID, nil
}

func (r *recordRepo) Update(_ context.Context, recordID, userID string, d records.Diff) error {
	if len(d) == 0 {
		return common.ErrNoFieldsToUpdate
	}
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[recordID]; ok && rec.UserID == userID {
		apply(rec, d)
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (r *recordRepo) Delete(_ context.Context, recordID, userID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[recordID]; ok && rec.UserID == userID {
		delete(s.records, recordID)
	}
	return nil
}

func matches(rec *models.Record, f records.Filter) bool {
	eq := func(p *string, v string) bool { return p == nil || *p == v }
	return eq(f.Kind, rec.Kind) && eq(f.Category, rec.Category) && eq(f.Tags, rec.Tags) &&
		eq(f.PaymentMethod, rec.PaymentMethod) && eq(f.Status, rec.Status) && eq(f.Frequency, rec.Frequency) &&
		(f.From == nil || !rec.OccurredOn.Before(*f.From)) &&
		(f.To == nil || !rec.OccurredOn.After(*f.To))
}

func (r *recordRepo) List(_ context.Context, userID string, f records.Filter) ([]*models.Record, error) {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	var out []*models.Record
	for _, rec := range s.records {
		if rec.UserID == userID && matches(rec, f) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredOn.Equal(out[j].OccurredOn) {
			return out[i].OccurredOn.After(out[j].OccurredOn)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *recordRepo) Top(ctx context.Context, userID, kind string, limit int) ([]*models.Record, error) {
	all, err := r.List(ctx, userID, records.Filter{Kind: &kind})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b *models.Record) int { return b.Amount.Cmp(a.Amount) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *recordRepo) SumCompleted(ctx context.Context, userID, kind string) (decimal.Decimal, error) {
	status := models.StatusCompleted
	all, err := r.List(ctx, userID, records.Filter{Kind: &kind, Status: &status})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, rec := range all {
		total = total.Add(rec.Amount)
	}
	return total, nil
}
