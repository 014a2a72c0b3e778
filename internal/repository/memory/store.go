// Package memory is an in-process implementation of the repository layer.
// Transactions run against a snapshot that replaces the live state only when
// the unit succeeds, so a failed unit leaves nothing behind.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
)

// Store holds every table in memory
type Store struct {
	mu       sync.Mutex
	state    *state
	decorate func(repos *repository.Repositories)
	now      func() time.Time
}

type state struct {
	lastID       uint
	accounts     map[uint]models.Account
	terms        map[uint]models.DebtTerms // by account id
	installments map[uint]models.Installment
	transfers    []models.LedgerTransfer
	expenses     []models.LedgerExpense
	categories   map[string]models.Category
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		state: &state{
			accounts:     make(map[uint]models.Account),
			terms:        make(map[uint]models.DebtTerms),
			installments: make(map[uint]models.Installment),
			categories:   make(map[string]models.Category),
		},
		now: time.Now,
	}
}

// Decorate installs a hook applied to every Repositories value the store
// hands out, inside transactions too. Tests use it to inject failures.
func (s *Store) Decorate(fn func(repos *repository.Repositories)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decorate = fn
}

// Repositories returns repositories bound to the live state
func (s *Store) Repositories() *repository.Repositories {
	repos := s.bind(&view{store: s, locking: true})
	repos.Tx = s
	return repos
}

func (s *Store) bind(v *view) *repository.Repositories {
	repos := &repository.Repositories{
		Account:     &accountRepository{v},
		Terms:       &termsRepository{v},
		Installment: &installmentRepository{v},
		Ledger:      &ledgerRepository{v},
		Category:    &categoryRepository{v},
	}
	if s.decorate != nil {
		s.decorate(repos)
	}
	return repos
}

// RunInTx runs fn against a snapshot and commits it when fn returns nil.
// Units are serialized by the store lock.
func (s *Store) RunInTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	repos := s.bind(&view{store: s, st: snapshot})
	if err := fn(repos); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

func (st *state) clone() *state {
	c := &state{
		lastID:       st.lastID,
		accounts:     make(map[uint]models.Account, len(st.accounts)),
		terms:        make(map[uint]models.DebtTerms, len(st.terms)),
		installments: make(map[uint]models.Installment, len(st.installments)),
		transfers:    append([]models.LedgerTransfer(nil), st.transfers...),
		expenses:     append([]models.LedgerExpense(nil), st.expenses...),
		categories:   make(map[string]models.Category, len(st.categories)),
	}
	for k, v := range st.accounts {
		c.accounts[k] = v
	}
	for k, v := range st.terms {
		c.terms[k] = v
	}
	for k, v := range st.installments {
		c.installments[k] = v
	}
	for k, v := range st.categories {
		c.categories[k] = v
	}
	return c
}

func (st *state) nextID() uint {
	st.lastID++
	return st.lastID
}

// view is the state a repository operates on. Live views take the store
// lock per call; transaction views already run under it.
type view struct {
	store   *Store
	st      *state
	locking bool
}

func (v *view) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !v.locking {
		return fn(v.st)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.state)
}

func (v *view) now() time.Time {
	return v.store.now()
}
