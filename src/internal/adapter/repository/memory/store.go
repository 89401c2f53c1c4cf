// Package memory holds an in-process ledger store. It backs tests and the
// "serve --store=memory" mode, and honors the same contracts as the Postgres
// repositories: units of work are serialized and roll back on error.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/api-sage/tenmo-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/tenmo-ledger/src/internal/commons"
	"github.com/api-sage/tenmo-ledger/src/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	_ repo_interfaces.UnitOfWork         = (*Store)(nil)
	_ repo_interfaces.AccountRepository  = (*AccountRepository)(nil)
	_ repo_interfaces.TransferRepository = (*TransferRepository)(nil)
	_ repo_interfaces.UserRepository     = (*UserRepository)(nil)
)

const (
	firstUserID     = 1001
	firstAccountID  = 2001
	firstTransferID = 3001
)

type state struct {
	users          map[int64]domain.User
	accounts       map[int64]domain.Account
	transfers      map[int64]domain.Transfer
	nextUserID     int64
	nextAccountID  int64
	nextTransferID int64

	// journal is set while a unit of work runs.
	journal *journal
}

// journal holds the inverse of every write made inside a unit of work.
type journal []func()

func (j *journal) record(undo func()) {
	if j != nil {
		*j = append(*j, undo)
	}
}

func (j journal) rollback() {
	for i := len(j) - 1; i >= 0; i-- {
		j[i]()
	}
}

func (s *state) putAccount(account domain.Account) {
	prev, existed := s.accounts[account.ID]
	s.journal.record(func() {
		if existed {
			s.accounts[account.ID] = prev
			return
		}
		delete(s.accounts, account.ID)
	})
	s.accounts[account.ID] = account
}

func (s *state) putTransfer(transfer domain.Transfer) {
	prev, existed := s.transfers[transfer.ID]
	s.journal.record(func() {
		if existed {
			s.transfers[transfer.ID] = prev
			return
		}
		delete(s.transfers, transfer.ID)
	})
	s.transfers[transfer.ID] = transfer
}

func (s *state) allocTransferID() int64 {
	id := s.nextTransferID
	s.journal.record(func() { s.nextTransferID = id })
	s.nextTransferID++
	return id
}

type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: &state{
			users:          make(map[int64]domain.User),
			accounts:       make(map[int64]domain.Account),
			transfers:      make(map[int64]domain.Transfer),
			nextUserID:     firstUserID,
			nextAccountID:  firstAccountID,
			nextTransferID: firstTransferID,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Do serializes units of work. fn sees its own writes immediately; they are
// undone from the journal when fn returns an error or panics.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, stores repo_interfaces.Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var undo journal
	s.state.journal = &undo
	defer func() {
		s.state.journal = nil
		if p := recover(); p != nil {
			undo.rollback()
			panic(p)
		}
		if err != nil {
			undo.rollback()
		}
	}()

	return fn(ctx, repo_interfaces.Stores{
		Accounts:  &AccountRepository{store: s, inUnit: true},
		Transfers: &TransferRepository{store: s, inUnit: true},
	})
}

func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

func (s *Store) Transfers() *TransferRepository {
	return &TransferRepository{store: s}
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{store: s}
}

// with runs fn against the current state. Repositories handed out by Do are
// already under the store lock.
func (s *Store) with(inUnit bool, fn func(st *state) error) error {
	if !inUnit {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.state)
}

type AccountRepository struct {
	store  *Store
	inUnit bool
}

func (r *AccountRepository) GetByID(_ context.Context, accountID int64) (domain.Account, error) {
	var out domain.Account
	err := r.store.with(r.inUnit, func(st *state) error {
		account, ok := st.accounts[accountID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		out = account
		return nil
	})
	return out, err
}

func (r *AccountRepository) GetByUserID(_ context.Context, userID int64) (domain.Account, error) {
	var out domain.Account
	err := r.store.with(r.inUnit, func(st *state) error {
		for _, account := range st.accounts {
			if account.UserID == userID {
				out = account
				return nil
			}
		}
		return commons.ErrRecordNotFound
	})
	return out, err
}

func (r *AccountRepository) List(_ context.Context) ([]domain.Account, error) {
	var out []domain.Account
	err := r.store.with(r.inUnit, func(st *state) error {
		out = make([]domain.Account, 0, len(st.accounts))
		for _, account := range st.accounts {
			out = append(out, account)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *AccountRepository) Lock(ctx context.Context, accountIDs ...int64) ([]domain.Account, error) {
	var out []domain.Account
	err := r.store.with(r.inUnit, func(st *state) error {
		seen := make(map[int64]struct{}, len(accountIDs))
		for _, id := range accountIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			if account, ok := st.accounts[id]; ok {
				out = append(out, account)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *AccountRepository) ConditionalDebit(_ context.Context, accountID int64, amount decimal.Decimal) (bool, error) {
	applied := false
	err := r.store.with(r.inUnit, func(st *state) error {
		account, ok := st.accounts[accountID]
		if !ok || account.Balance.LessThan(amount) {
			return nil
		}
		account.Balance = account.Balance.Sub(amount)
		st.putAccount(account)
		applied = true
		return nil
	})
	return applied, err
}

func (r *AccountRepository) Credit(_ context.Context, accountID int64, amount decimal.Decimal) error {
	return r.store.with(r.inUnit, func(st *state) error {
		account, ok := st.accounts[accountID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		balance := account.Balance.Add(amount)
		if balance.GreaterThan(domain.MaxAmount) {
			return domain.ErrBalanceOverflow
		}
		account.Balance = balance
		st.putAccount(account)
		return nil
	})
}

type TransferRepository struct {
	store  *Store
	inUnit bool
}

func (r *TransferRepository) Insert(
	_ context.Context,
	transferType domain.TransferType,
	status domain.TransferStatus,
	accountFrom int64,
	accountTo int64,
	amount decimal.Decimal,
) (int64, error) {
	var id int64
	err := r.store.with(r.inUnit, func(st *state) error {
		if _, ok := st.accounts[accountFrom]; !ok {
			return commons.ErrRecordNotFound
		}
		if _, ok := st.accounts[accountTo]; !ok {
			return commons.ErrRecordNotFound
		}

		id = st.allocTransferID()
		st.putTransfer(domain.Transfer{
			ID:          id,
			Type:        transferType,
			Status:      status,
			AccountFrom: accountFrom,
			AccountTo:   accountTo,
			Amount:      amount,
			CreatedAt:   r.store.now(),
		})
		return nil
	})
	return id, err
}

func (r *TransferRepository) UpdateStatus(_ context.Context, transferID int64, status domain.TransferStatus) error {
	return r.store.with(r.inUnit, func(st *state) error {
		transfer, ok := st.transfers[transferID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		transfer.Status = status
		st.putTransfer(transfer)
		return nil
	})
}

func (r *TransferRepository) GetByID(_ context.Context, transferID int64) (domain.Transfer, error) {
	var out domain.Transfer
	err := r.store.with(r.inUnit, func(st *state) error {
		transfer, ok := st.transfers[transferID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		out = transfer
		return nil
	})
	return out, err
}

// GetByIDForUpdate is GetByID: a unit of work already holds the store
// exclusively.
func (r *TransferRepository) GetByIDForUpdate(ctx context.Context, transferID int64) (domain.Transfer, error) {
	return r.GetByID(ctx, transferID)
}

func (r *TransferRepository) ListByAccount(_ context.Context, accountID int64) ([]domain.Transfer, error) {
	out := make([]domain.Transfer, 0)
	err := r.store.with(r.inUnit, func(st *state) error {
		for _, transfer := range st.transfers {
			if transfer.Involves(accountID) {
				out = append(out, transfer)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type UserRepository struct {
	store *Store
}

func (r *UserRepository) GetByID(_ context.Context, userID int64) (domain.User, error) {
	var out domain.User
	err := r.store.with(false, func(st *state) error {
		user, ok := st.users[userID]
		if !ok {
			return commons.ErrRecordNotFound
		}
		out = user
		return nil
	})
	return out, err
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	var out domain.User
	err := r.store.with(false, func(st *state) error {
		user, ok := findUser(st, username)
		if !ok {
			return commons.ErrRecordNotFound
		}
		out = user
		return nil
	})
	return out, err
}

func (r *UserRepository) List(_ context.Context) ([]domain.User, error) {
	var out []domain.User
	err := r.store.with(false, func(st *state) error {
		out = make([]domain.User, 0, len(st.users))
		for _, user := range st.users {
			user.PasswordHash = ""
			out = append(out, user)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r *UserRepository) CreateWithAccount(_ context.Context, username string, passwordHash string, openingBalance decimal.Decimal) (domain.User, domain.Account, error) {
	var (
		user    domain.User
		account domain.Account
	)
	err := r.store.with(false, func(st *state) error {
		username = strings.TrimSpace(username)
		if _, taken := findUser(st, username); taken {
			return domain.ErrUsernameTaken
		}
		if openingBalance.GreaterThan(domain.MaxAmount) {
			return domain.ErrAmountTooLarge
		}

		user = domain.User{
			ID:           st.nextUserID,
			Username:     username,
			PasswordHash: passwordHash,
			CreatedAt:    r.store.now(),
		}
		account = domain.Account{
			ID:      st.nextAccountID,
			UserID:  user.ID,
			Balance: openingBalance,
		}
		st.nextUserID++
		st.nextAccountID++
		st.users[user.ID] = user
		st.putAccount(account)
		return nil
	})
	if err != nil {
		return domain.User{}, domain.Account{}, err
	}
	return user, account, nil
}

func findUser(st *state, username string) (domain.User, bool) {
	for _, user := range st.users {
		if strings.EqualFold(user.Username, strings.TrimSpace(username)) {
			return user, true
		}
	}
	return domain.User{}, false
}
