// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accountstore

import (
	"github.com/pkg/errors"

	"github.com/shardchain/corestate/account"
	"github.com/shardchain/corestate/tx"
	"github.com/shardchain/corestate/types"
)

// tempView returns a mutable copy of the account at addr as the overlay
// sees it: overlay entry first, base map second, nil if neither has it.
// The copy is installed into the overlay only once the whole transaction
// succeeds, so a failed transaction leaves no partial mutation behind.
func (s *AccountStore) tempView(addr types.Address) *account.Account {
	if acct, ok := s.temp[addr]; ok {
		return acct.Copy()
	}
	if acct, ok := s.accounts[addr]; ok {
		return acct.Copy()
	}
	return nil
}

func (s *AccountStore) tempExists(addr types.Address) bool {
	if _, ok := s.temp[addr]; ok {
		return true
	}
	_, ok := s.accounts[addr]
	return ok
}

// UpdateAccountsTemp applies t to the speculative overlay. The base map
// stays untouched until MoveUpdatesToDisk promotes the overlay; the state
// trie accumulates the new serializations in memory so GetStateRoot reflects
// every transaction applied so far, and DiscardUnsavedUpdates rewinds them.
func (s *AccountStore) UpdateAccountsTemp(epochNum uint64, numShards uint32, isDS bool, t *tx.Transaction, receipt *tx.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.temp == nil {
		s.temp = make(map[types.Address]*account.Account)
	}
	if receipt != nil {
		receipt.TxHash = t.Hash()
		receipt.EpochNum = epochNum
	}

	fail := func(err error) error {
		if receipt != nil {
			receipt.Success = false
			receipt.Error = err.Error()
		}
		return err
	}

	sender := t.SenderAddr()
	src := s.tempView(sender)
	if src == nil {
		return fail(errors.Wrapf(types.ErrNotFound, "accountstore: sender %v", sender))
	}

	fee, ok := t.GasPrice.Mul(types.NewU128(t.GasLimit))
	if !ok {
		return fail(errors.Wrap(types.ErrArithmeticOverflow, "accountstore: gas fee"))
	}
	total, ok := t.Amount.Add(fee)
	if !ok {
		return fail(errors.Wrap(types.ErrArithmeticOverflow, "accountstore: amount plus gas fee"))
	}
	if src.Balance.Cmp(total) < 0 {
		return fail(errors.Wrapf(types.ErrInsufficientBalance,
			"accountstore: sender %v balance %v, needs %v", sender, src.Balance, total))
	}

	var dstAddr types.Address
	var dst *account.Account
	switch {
	case t.IsContractCreation():
		dstAddr = types.ContractAddress(sender, t.Nonce)
		if s.tempExists(dstAddr) {
			return fail(errors.Wrapf(types.ErrMalformedInput, "accountstore: contract address %v taken", dstAddr))
		}
		dst = account.New(types.ZeroU128())
		dst.SetCode(t.Code)
		if s.contractState == nil {
			dst.AttachStorage(s.db)
		}
		if len(t.Data) > 0 {
			if err := dst.InitContract(t.Data, dstAddr, epochNum, s.contractState.orNil()); err != nil {
				return fail(err)
			}
		}

	case t.IsContractCall():
		// A contract call must stay within one shard; a DS node processes
		// every shard and skips the check.
		if !isDS && tx.ShardIndex(sender, numShards) != tx.ShardIndex(t.ToAddr, numShards) {
			return fail(errors.Wrapf(types.ErrWrongShard,
				"accountstore: cross-shard contract call %v -> %v", sender, t.ToAddr))
		}
		fallthrough

	default:
		dstAddr = t.ToAddr
		if dstAddr == sender {
			dst = src
		} else if dst = s.tempView(dstAddr); dst == nil {
			dst = account.New(types.ZeroU128())
		}
	}

	src.Decrease(total)
	src.IncreaseNonce()
	if !dst.Increase(t.Amount) {
		return fail(errors.Wrapf(types.ErrArithmeticOverflow, "accountstore: credit %v", dstAddr))
	}

	if err := s.updateStateTrie(sender, src); err != nil {
		return fail(err)
	}
	if dstAddr != sender {
		if err := s.updateStateTrie(dstAddr, dst); err != nil {
			return fail(err)
		}
	}
	s.temp[sender] = src
	s.temp[dstAddr] = dst

	if receipt != nil {
		receipt.Success = true
		receipt.CumGas = t.GasLimit
	}
	return nil
}

// HasUnsavedUpdates reports whether a speculative overlay is in flight.
func (s *AccountStore) HasUnsavedUpdates() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.temp != nil
}

// TempAccount returns the overlay's view of addr: the speculative value if
// the in-flight block touched it, the authoritative value otherwise.
func (s *AccountStore) TempAccount(addr types.Address) (*account.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acct, ok := s.temp[addr]; ok {
		return acct, true
	}
	acct, ok := s.accounts[addr]
	return acct, ok
}
