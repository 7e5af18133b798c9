// Package exchange is the ledger and order-matching core of grnex.
//
// An Exchange owns the wallet registry, the transaction ledger and the order
// book behind a single mutex: every externally visible operation is an
// exclusive critical section over the whole state tree, since crossing reads
// and writes all three collections.
package exchange

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/grnlabs/grnex/pkg/exchange/book"
	"github.com/grnlabs/grnex/pkg/exchange/ledger"
	"github.com/grnlabs/grnex/pkg/exchange/wallet"
	"github.com/grnlabs/grnex/pkg/util"
)

// ExchangeRate is the fixed price of one GRN coin in fiat units,
// applied uniformly everywhere fiat and coins are converted.
var ExchangeRate = decimal.NewFromInt(375)

// Snapshot is the externally visible view of one wallet.
type Snapshot struct {
	ID    uint32
	Owner string
	Fiat  decimal.Decimal
	Coins decimal.Decimal
}

// State carries the plain records of the three entity collections across the
// persistence boundary. The on-disk layout belongs to pkg/storage.
type State struct {
	Wallets      []wallet.Wallet
	Transactions []ledger.Transaction
	Orders       []book.Order
}

type Exchange struct {
	mu      sync.Mutex
	wallets *wallet.Registry
	ledger  *ledger.Log
	book    *book.Book
}

func New(clock util.Clock) *Exchange {
	return &Exchange{
		wallets: wallet.NewRegistry(),
		ledger:  ledger.New(clock),
		book:    book.NewBook(),
	}
}

// Load rebuilds an exchange from a persisted state snapshot.
func Load(clock util.Clock, st State) *Exchange {
	return &Exchange{
		wallets: wallet.Restore(st.Wallets),
		ledger:  ledger.Restore(clock, st.Transactions),
		book:    book.Restore(st.Orders),
	}
}

// CreateWallet enrolls a wallet and seeds it with initialFiat/ExchangeRate
// coins from the system wallet. Enrollment and seeding are one atomic step:
// a refused seed transfer cancels the enrollment and no wallet is retained.
func (e *Exchange) CreateWallet(owner string, initialFiat decimal.Decimal) (uint32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, err := e.wallets.Create(owner, initialFiat)
	if err != nil {
		return 0, err
	}

	if err := e.transferLocked(wallet.SystemID, w.ID, initialFiat.Div(ExchangeRate)); err != nil {
		e.wallets.Remove(w.ID)
		return 0, fmt.Errorf("seed transfer refused: %w", err)
	}
	return w.ID, nil
}

// Transfer moves coins between wallets. Refusals leave all state unchanged;
// the amount is moved exactly or not at all.
func (e *Exchange) Transfer(senderID, receiverID uint32, coins decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transferLocked(senderID, receiverID, coins)
}

// transferLocked validates and appends one ledger transaction. The system
// wallet bypasses the existence and balance checks: it has unlimited coins.
func (e *Exchange) transferLocked(senderID, receiverID uint32, coins decimal.Decimal) error {
	if _, ok := e.wallets.Lookup(receiverID); !ok {
		return fmt.Errorf("receiver: %w: %d", wallet.ErrUnknownWallet, receiverID)
	}
	if senderID != wallet.SystemID {
		if _, ok := e.wallets.Lookup(senderID); !ok {
			return fmt.Errorf("sender: %w: %d", wallet.ErrUnknownWallet, senderID)
		}
		if e.ledger.CoinBalance(senderID).LessThan(coins) {
			return fmt.Errorf("%w: wallet %d", ErrInsufficientCoins, senderID)
		}
	}
	if coins.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, coins)
	}

	e.ledger.Append(senderID, receiverID, coins)
	return nil
}

// SubmitOrder validates the order against the wallet's usable funds, appends
// it unexecuted, and immediately reruns the crossing pass over the whole
// book. Returns the fills the pass settled.
func (e *Exchange) SubmitOrder(walletID uint32, side book.Side, qty decimal.Decimal) ([]book.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.wallets.Lookup(walletID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", wallet.ErrUnknownWallet, walletID)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNonPositiveQuantity, qty)
	}

	switch side {
	case book.Buy:
		if e.usableFiatLocked(w).LessThan(qty.Mul(ExchangeRate)) {
			return nil, fmt.Errorf("%w: wallet %d", ErrInsufficientFiat, walletID)
		}
	case book.Sell:
		if e.usableCoinsLocked(walletID).LessThan(qty) {
			return nil, fmt.Errorf("%w: wallet %d", ErrInsufficientCoins, walletID)
		}
	default:
		return nil, fmt.Errorf("invalid order side: %d", side)
	}

	e.book.Append(walletID, side, qty)
	return e.book.Cross(e.settleLocked), nil
}

// settleLocked performs one settlement: a ledger transaction moving coins
// from seller to buyer, plus the matching fiat adjustment on both wallets.
func (e *Exchange) settleLocked(sellerID, buyerID uint32, qty decimal.Decimal) error {
	if err := e.transferLocked(sellerID, buyerID, qty); err != nil {
		return err
	}
	fiat := qty.Mul(ExchangeRate)
	if err := e.wallets.AdjustFiat(buyerID, fiat.Neg()); err != nil {
		return err
	}
	return e.wallets.AdjustFiat(sellerID, fiat)
}

// usableFiatLocked is the wallet's fiat balance minus the fiat already
// promised to its own unexecuted buy orders.
func (e *Exchange) usableFiatLocked(w *wallet.Wallet) decimal.Decimal {
	return w.Fiat.Sub(e.book.Reserved(w.ID, book.Buy).Mul(ExchangeRate))
}

// usableCoinsLocked is the wallet's coin balance minus the coins already
// promised to its own unexecuted sell orders.
func (e *Exchange) usableCoinsLocked(walletID uint32) decimal.Decimal {
	return e.ledger.CoinBalance(walletID).Sub(e.book.Reserved(walletID, book.Sell))
}

// UsableFiat returns the wallet's unencumbered fiat balance.
func (e *Exchange) UsableFiat(walletID uint32) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.wallets.Lookup(walletID)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", wallet.ErrUnknownWallet, walletID)
	}
	return e.usableFiatLocked(w), nil
}

// UsableCoins returns the wallet's unencumbered coin balance.
func (e *Exchange) UsableCoins(walletID uint32) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.wallets.Lookup(walletID); !ok {
		return decimal.Zero, fmt.Errorf("%w: %d", wallet.ErrUnknownWallet, walletID)
	}
	return e.usableCoinsLocked(walletID), nil
}

// WalletSnapshot returns the owner, fiat balance and derived coin balance.
func (e *Exchange) WalletSnapshot(walletID uint32) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	w, ok := e.wallets.Lookup(walletID)
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %d", wallet.ErrUnknownWallet, walletID)
	}
	return Snapshot{
		ID:    w.ID,
		Owner: w.Owner,
		Fiat:  w.Fiat,
		Coins: e.ledger.CoinBalance(w.ID),
	}, nil
}

// ExecutedOrders returns how many of the wallet's orders have executed.
func (e *Exchange) ExecutedOrders(walletID uint32) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.wallets.Lookup(walletID); !ok {
		return 0, fmt.Errorf("%w: %d", wallet.ErrUnknownWallet, walletID)
	}
	return e.book.ExecutedCount(walletID), nil
}

// DumpState returns plain record copies of all three collections for the
// persistence layer.
func (e *Exchange) DumpState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Wallets:      e.wallets.Dump(),
		Transactions: e.ledger.Dump(),
		Orders:       e.book.Dump(),
	}
}
