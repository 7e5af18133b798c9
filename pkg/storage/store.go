// Package storage persists the exchange state in a Pebble database.
// It runs once at process start (load) and stop (save), never interleaved
// with command processing.
package storage

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/grnlabs/grnex/pkg/exchange"
	"github.com/grnlabs/grnex/pkg/exchange/book"
	"github.com/grnlabs/grnex/pkg/exchange/ledger"
	"github.com/grnlabs/grnex/pkg/exchange/wallet"
)

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveState writes the whole state snapshot in one atomic batch. All three
// collections only ever grow, so rewriting by sequence number never leaves
// stale records behind.
func (s *Store) SaveState(st exchange.State) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for i, w := range st.Wallets {
		val, err := encodeGob(w)
		if err != nil {
			return fmt.Errorf("encode wallet %d: %w", w.ID, err)
		}
		if err := batch.Set(walletKey(uint64(i)), val, nil); err != nil {
			return err
		}
	}
	for i, tx := range st.Transactions {
		val, err := encodeGob(tx)
		if err != nil {
			return fmt.Errorf("encode transaction %s: %w", tx.ID, err)
		}
		if err := batch.Set(transactionKey(uint64(i)), val, nil); err != nil {
			return err
		}
	}
	for i, o := range st.Orders {
		val, err := encodeGob(o)
		if err != nil {
			return fmt.Errorf("encode order %s: %w", o.ID, err)
		}
		if err := batch.Set(orderKey(uint64(i)), val, nil); err != nil {
			return err
		}
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	return nil
}

// LoadState reads the state snapshot back in record order. found is false
// when the database holds no state yet (fresh start).
func (s *Store) LoadState() (exchange.State, bool, error) {
	var st exchange.State

	if err := s.scan(prefixWallet, func(val []byte) error {
		var w wallet.Wallet
		if err := decodeGob(val, &w); err != nil {
			return err
		}
		st.Wallets = append(st.Wallets, w)
		return nil
	}); err != nil {
		return exchange.State{}, false, fmt.Errorf("load wallets: %w", err)
	}

	if err := s.scan(prefixTransaction, func(val []byte) error {
		var tx ledger.Transaction
		if err := decodeGob(val, &tx); err != nil {
			return err
		}
		st.Transactions = append(st.Transactions, tx)
		return nil
	}); err != nil {
		return exchange.State{}, false, fmt.Errorf("load transactions: %w", err)
	}

	if err := s.scan(prefixOrder, func(val []byte) error {
		var o book.Order
		if err := decodeGob(val, &o); err != nil {
			return err
		}
		st.Orders = append(st.Orders, o)
		return nil
	}); err != nil {
		return exchange.State{}, false, fmt.Errorf("load orders: %w", err)
	}

	found := len(st.Wallets) > 0 || len(st.Transactions) > 0 || len(st.Orders) > 0
	return st, found, nil
}

func (s *Store) scan(prefix string, each func(val []byte) error) error {
	lower := []byte(prefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(lower),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := each(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}
