// Package ledger is the append-only record of settled coin transfers.
// The log is the sole source of truth for coin balances: no wallet stores
// a coin balance field, it is always derived by replay.
package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grnlabs/grnex/pkg/util"
)

// Transaction is one settled coin transfer. Immutable once appended.
type Transaction struct {
	ID         string
	Time       int64 // unix seconds
	SenderID   uint32
	ReceiverID uint32
	Amount     decimal.Decimal // coins, non-negative
}

// Log holds transactions in append order. It trusts its caller to have
// validated funds and wallet existence before appending.
type Log struct {
	clock util.Clock
	txs   []Transaction
}

func New(clock util.Clock) *Log {
	return &Log{clock: clock}
}

// Restore rebuilds a log from persisted transactions, preserving order.
func Restore(clock util.Clock, txs []Transaction) *Log {
	l := New(clock)
	l.txs = append(l.txs, txs...)
	return l
}

// Append records a transfer stamped with the current wall-clock time.
func (l *Log) Append(senderID, receiverID uint32, amount decimal.Decimal) Transaction {
	tx := Transaction{
		ID:         uuid.NewString(),
		Time:       l.clock.Now().Unix(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
	}
	l.txs = append(l.txs, tx)
	return tx
}

// CoinBalance replays the whole log and returns the wallet's net coin
// holdings. O(n) per call; acceptable for the in-memory, single-session scope.
func (l *Log) CoinBalance(walletID uint32) decimal.Decimal {
	balance := decimal.Zero
	for i := range l.txs {
		switch walletID {
		case l.txs[i].SenderID:
			balance = balance.Sub(l.txs[i].Amount)
		case l.txs[i].ReceiverID:
			balance = balance.Add(l.txs[i].Amount)
		}
	}
	return balance
}

// FirstActivity returns the earliest transaction time touching the wallet
// as sender or receiver. ok is false if the wallet has no transactions.
func (l *Log) FirstActivity(walletID uint32) (int64, bool) {
	for i := range l.txs {
		if l.txs[i].SenderID == walletID || l.txs[i].ReceiverID == walletID {
			return l.txs[i].Time, true
		}
	}
	return 0, false
}

// LastActivity returns the latest transaction time touching the wallet.
func (l *Log) LastActivity(walletID uint32) (int64, bool) {
	for i := len(l.txs) - 1; i >= 0; i-- {
		if l.txs[i].SenderID == walletID || l.txs[i].ReceiverID == walletID {
			return l.txs[i].Time, true
		}
	}
	return 0, false
}

// Dump returns the transactions in append order for persistence.
func (l *Log) Dump() []Transaction {
	out := make([]Transaction, len(l.txs))
	copy(out, l.txs)
	return out
}

func (l *Log) Len() int { return len(l.txs) }
