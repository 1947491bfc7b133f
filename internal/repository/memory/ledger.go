// Package memory holds the whole ledger state in process. Write transactions
// mutate a staging copy that replaces the live state only when the operation
// succeeds, giving the same all-or-nothing semantics the postgres ledger gets
// from database transactions.
package memory

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dcriggs/eth-password-manager/internal/model"
)

type state struct {
	accounts map[common.Address]model.Account
	records  map[common.Address][]model.PasswordRecord
	shares   []model.ShareGrant
}

func newState() *state {
	return &state{
		accounts: make(map[common.Address]model.Account),
		records:  make(map[common.Address][]model.PasswordRecord),
	}
}

func (s *state) clone() *state {
	c := newState()
	for addr, account := range s.accounts {
		account.PublicKey = append([]byte(nil), account.PublicKey...)
		if account.FeePaid != nil {
			account.FeePaid = new(big.Int).Set(account.FeePaid)
		}
		c.accounts[addr] = account
	}
	for addr, seq := range s.records {
		c.records[addr] = append([]model.PasswordRecord(nil), seq...)
	}
	c.shares = append([]model.ShareGrant(nil), s.shares...)
	return c
}

var _ model.Ledger = (*Ledger)(nil)

// Ledger is an in-memory model.Ledger. Writes are serialized by a single
// lock; reads see the latest committed state.
type Ledger struct {
	mu    sync.RWMutex
	state *state
}

func NewLedger() *Ledger {
	return &Ledger{state: newState()}
}

func (l *Ledger) Write(ctx context.Context, fn func(tx model.StateTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	staging := l.state.clone()
	if err := fn(&stateTx{state: staging}); err != nil {
		return err
	}
	l.state = staging
	return nil
}

func (l *Ledger) Read(ctx context.Context, fn func(tx model.StateTx) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	// Reads get the live state; stores hand out copies, not aliases.
	return fn(&stateTx{state: l.state})
}

type stateTx struct {
	state *state
}

func (t *stateTx) Accounts() model.AccountStore { return &accountStore{state: t.state} }
func (t *stateTx) Records() model.RecordStore   { return &recordStore{state: t.state} }
func (t *stateTx) Shares() model.ShareStore     { return &shareStore{state: t.state} }

type accountStore struct {
	state *state
}

func (s *accountStore) Create(_ context.Context, account model.Account) (model.Account, error) {
	if _, ok := s.state.accounts[account.Address]; ok {
		return model.Account{}, fmt.Errorf("account %s already exists", account.Address.Hex())
	}
	s.state.accounts[account.Address] = account
	return account, nil
}

func (s *accountStore) GetByAddress(_ context.Context, address common.Address) (model.Account, error) {
	account, ok := s.state.accounts[address]
	if !ok {
		return model.Account{}, model.ErrNotFound
	}
	// Copies, not aliases: on the Read path this is live committed state.
	account.PublicKey = append([]byte(nil), account.PublicKey...)
	if account.FeePaid != nil {
		account.FeePaid = new(big.Int).Set(account.FeePaid)
	}
	return account, nil
}

func (s *accountStore) UpdateAuthHash(_ context.Context, address common.Address, authHash common.Hash) error {
	account, ok := s.state.accounts[address]
	if !ok {
		return model.ErrNotFound
	}
	account.AuthHash = authHash
	s.state.accounts[address] = account
	return nil
}

type recordStore struct {
	state *state
}

func (s *recordStore) Append(_ context.Context, record model.PasswordRecord) (model.PasswordRecord, error) {
	record.Position = len(s.state.records[record.Owner])
	s.state.records[record.Owner] = append(s.state.records[record.Owner], record)
	return record, nil
}

func (s *recordStore) GetByOwner(_ context.Context, owner common.Address) ([]model.PasswordRecord, error) {
	return append([]model.PasswordRecord(nil), s.state.records[owner]...), nil
}

func (s *recordStore) Count(_ context.Context, owner common.Address) (int, error) {
	return len(s.state.records[owner]), nil
}

func (s *recordStore) UpdateAt(_ context.Context, owner common.Address, position int, website, userName, payload string) error {
	seq := s.state.records[owner]
	if position < 0 || position >= len(seq) {
		return model.ErrNotFound
	}
	seq[position].Website = website
	seq[position].UserName = userName
	seq[position].Payload = payload
	return nil
}

func (s *recordStore) SwapDelete(_ context.Context, owner common.Address, position int) error {
	seq := s.state.records[owner]
	if position < 0 || position >= len(seq) {
		return model.ErrNotFound
	}
	last := len(seq) - 1
	if position != last {
		seq[position] = seq[last]
		seq[position].Position = position
	}
	s.state.records[owner] = seq[:last]
	return nil
}

type shareStore struct {
	state *state
}

func (s *shareStore) Create(_ context.Context, grant model.ShareGrant) (model.ShareGrant, error) {
	s.state.shares = append(s.state.shares, grant)
	return grant, nil
}

func (s *shareStore) GetReceived(_ context.Context, recipient, sender common.Address) ([]model.ShareGrant, error) {
	return s.filter(func(g model.ShareGrant) bool {
		return g.Recipient == recipient && g.Sender == sender
	}), nil
}

func (s *shareStore) GetAllReceived(_ context.Context, recipient common.Address) ([]model.ShareGrant, error) {
	return s.filter(func(g model.ShareGrant) bool { return g.Recipient == recipient }), nil
}

func (s *shareStore) GetAllSent(_ context.Context, sender common.Address) ([]model.ShareGrant, error) {
	return s.filter(func(g model.ShareGrant) bool { return g.Sender == sender }), nil
}

func (s *shareStore) DeleteMatch(_ context.Context, sender, recipient common.Address, name, dataHash string) error {
	for i, g := range s.state.shares {
		if g.Sender == sender && g.Recipient == recipient && g.Name == name && g.DataHash == dataHash {
			s.state.shares = append(s.state.shares[:i], s.state.shares[i+1:]...)
			return nil
		}
	}
	return model.ErrNotFound
}

func (s *shareStore) filter(keep func(model.ShareGrant) bool) []model.ShareGrant {
	var out []model.ShareGrant
	for _, g := range s.state.shares {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}
