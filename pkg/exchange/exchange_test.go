package exchange_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grnlabs/grnex/pkg/exchange"
	"github.com/grnlabs/grnex/pkg/exchange/book"
	"github.com/grnlabs/grnex/pkg/exchange/wallet"
)

type stubClock struct{ t int64 }

func (c *stubClock) Now() time.Time {
	c.t++
	return time.Unix(c.t, 0)
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func newExchange() *exchange.Exchange {
	return exchange.New(&stubClock{})
}

// mustCreate enrolls a wallet or fails the test.
func mustCreate(t *testing.T, ex *exchange.Exchange, owner string, fiat int64) uint32 {
	t.Helper()
	id, err := ex.CreateWallet(owner, dec(fiat))
	if err != nil {
		t.Fatalf("create wallet %s: %v", owner, err)
	}
	return id
}

func coins(t *testing.T, ex *exchange.Exchange, id uint32) decimal.Decimal {
	t.Helper()
	snap, err := ex.WalletSnapshot(id)
	if err != nil {
		t.Fatalf("snapshot %d: %v", id, err)
	}
	return snap.Coins
}

func TestCreateWalletSeedsCoins(t *testing.T) {
	ex := newExchange()
	id := mustCreate(t, ex, "alice", 3750)

	// 3750 fiat at rate 375 seeds exactly 10 coins.
	if got := coins(t, ex, id); !got.Equal(dec(10)) {
		t.Errorf("coins = %s, want 10", got)
	}

	st := ex.DumpState()
	if len(st.Transactions) != 1 {
		t.Fatalf("transactions = %d, want exactly one seed transfer", len(st.Transactions))
	}
	tx := st.Transactions[0]
	if tx.SenderID != wallet.SystemID || tx.ReceiverID != id {
		t.Errorf("seed transfer endpoints wrong: %+v", tx)
	}
}

func TestCreateWalletRefusedSeedCancelsEnrollment(t *testing.T) {
	ex := newExchange()

	// A negative deposit makes the seed transfer amount negative, which the
	// transfer path refuses; the enrollment must be rolled back whole.
	if _, err := ex.CreateWallet("mallory", dec(-3750)); err == nil {
		t.Fatal("expected refusal for negative deposit")
	}

	st := ex.DumpState()
	if len(st.Wallets) != 0 {
		t.Error("cancelled enrollment retained a wallet")
	}
	if len(st.Transactions) != 0 {
		t.Error("cancelled enrollment retained a transaction")
	}
}

func TestTransferValidation(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750) // 10 coins
	bob := mustCreate(t, ex, "bob", 0)        // 0 coins

	tests := []struct {
		name     string
		sender   uint32
		receiver uint32
		amount   decimal.Decimal
		wantErr  bool
	}{
		{"ok", alice, bob, dec(4), false},
		{"unknown receiver", alice, 12345, dec(1), true},
		{"unknown sender", 12345, bob, dec(1), true},
		{"insufficient coins", bob, alice, dec(100), true},
		{"system wallet bypasses checks", wallet.SystemID, bob, dec(50), false},
		{"negative amount", alice, bob, dec(-1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(ex.DumpState().Transactions)
			err := ex.Transfer(tt.sender, tt.receiver, tt.amount)
			after := len(ex.DumpState().Transactions)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected refusal")
				}
				if after != before {
					t.Error("refused transfer mutated the ledger")
				}
			} else {
				if err != nil {
					t.Fatalf("transfer refused: %v", err)
				}
				if after != before+1 {
					t.Error("accepted transfer did not append exactly one transaction")
				}
			}
		})
	}
}

func TestCoinBalanceNeverNegative(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750)
	bob := mustCreate(t, ex, "bob", 3750)

	if err := ex.Transfer(alice, bob, dec(10)); err != nil {
		t.Fatalf("transfer refused: %v", err)
	}
	// Alice is now empty; one more coin must be refused.
	if err := ex.Transfer(alice, bob, dec(1)); err == nil {
		t.Fatal("expected refusal for overdraw")
	}
	if got := coins(t, ex, alice); got.IsNegative() {
		t.Errorf("alice coins went negative: %s", got)
	}
}

func TestUsableFundsEqualRawWithoutPendingOrders(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750)

	fiat, err := ex.UsableFiat(alice)
	if err != nil || !fiat.Equal(dec(3750)) {
		t.Errorf("usable fiat = %s (%v), want 3750", fiat, err)
	}
	usable, err := ex.UsableCoins(alice)
	if err != nil || !usable.Equal(dec(10)) {
		t.Errorf("usable coins = %s (%v), want 10", usable, err)
	}
}

// Pending orders of one wallet must never encumber another wallet's funds.
func TestUsableFundsScopedToWallet(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750)
	bob := mustCreate(t, ex, "bob", 7500)

	// Alice parks an open buy (no sells to cross against).
	if _, err := ex.SubmitOrder(alice, book.Buy, dec(5)); err != nil {
		t.Fatalf("submit refused: %v", err)
	}

	aliceFiat, _ := ex.UsableFiat(alice)
	if !aliceFiat.Equal(dec(3750 - 5*375)) {
		t.Errorf("alice usable fiat = %s, want 1875", aliceFiat)
	}
	bobFiat, _ := ex.UsableFiat(bob)
	if !bobFiat.Equal(dec(7500)) {
		t.Errorf("bob usable fiat = %s, want 7500 untouched by alice's order", bobFiat)
	}

	// Same scoping on the sell side, in a fresh session so the pending sell
	// has nothing to cross against.
	ex2 := newExchange()
	alice2 := mustCreate(t, ex2, "alice", 3750)
	bob2 := mustCreate(t, ex2, "bob", 7500)

	if _, err := ex2.SubmitOrder(bob2, book.Sell, dec(6)); err != nil {
		t.Fatalf("submit refused: %v", err)
	}
	bobCoins, _ := ex2.UsableCoins(bob2)
	if !bobCoins.Equal(dec(20 - 6)) {
		t.Errorf("bob usable coins = %s, want 14", bobCoins)
	}
	aliceCoins, _ := ex2.UsableCoins(alice2)
	if !aliceCoins.Equal(dec(10)) {
		t.Errorf("alice usable coins = %s, want 10 untouched by bob's order", aliceCoins)
	}
}

func TestSubmitOrderValidation(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750) // 10 coins

	if _, err := ex.SubmitOrder(9999, book.Buy, dec(1)); !errors.Is(err, wallet.ErrUnknownWallet) {
		t.Errorf("err = %v, want ErrUnknownWallet", err)
	}
	if _, err := ex.SubmitOrder(alice, book.Buy, dec(0)); !errors.Is(err, exchange.ErrNonPositiveQuantity) {
		t.Errorf("err = %v, want ErrNonPositiveQuantity", err)
	}
	// 3750 fiat buys at most 10 coins.
	if _, err := ex.SubmitOrder(alice, book.Buy, dec(11)); !errors.Is(err, exchange.ErrInsufficientFiat) {
		t.Errorf("err = %v, want ErrInsufficientFiat", err)
	}
	if _, err := ex.SubmitOrder(alice, book.Sell, dec(11)); !errors.Is(err, exchange.ErrInsufficientCoins) {
		t.Errorf("err = %v, want ErrInsufficientCoins", err)
	}

	// Refusals must leave the book empty.
	if got := len(ex.DumpState().Orders); got != 0 {
		t.Errorf("orders = %d, want 0 after refusals", got)
	}
}

// Reservation accounting across multiple pending orders of the same wallet.
func TestPendingOrdersReserveFunds(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750) // 10 coins, 3750 fiat

	if _, err := ex.SubmitOrder(alice, book.Sell, dec(6)); err != nil {
		t.Fatalf("first sell refused: %v", err)
	}
	if _, err := ex.SubmitOrder(alice, book.Sell, dec(4)); err != nil {
		t.Fatalf("second sell refused: %v", err)
	}
	// All 10 coins are now promised; one more is a double-spend.
	if _, err := ex.SubmitOrder(alice, book.Sell, dec(1)); !errors.Is(err, exchange.ErrInsufficientCoins) {
		t.Errorf("err = %v, want ErrInsufficientCoins", err)
	}
}

func TestCrossingSettlesEqualOrders(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750) // 10 coins
	bob := mustCreate(t, ex, "bob", 1500)     // 4 coins, 1500 fiat

	if _, err := ex.SubmitOrder(alice, book.Sell, dec(4)); err != nil {
		t.Fatalf("sell refused: %v", err)
	}
	fills, err := ex.SubmitOrder(bob, book.Buy, dec(4))
	if err != nil {
		t.Fatalf("buy refused: %v", err)
	}
	if len(fills) != 1 || !fills[0].Qty.Equal(dec(4)) {
		t.Fatalf("unexpected fills: %+v", fills)
	}

	aliceSnap, _ := ex.WalletSnapshot(alice)
	bobSnap, _ := ex.WalletSnapshot(bob)

	// 4 coins moved alice→bob, 1500 fiat moved bob→alice.
	if !aliceSnap.Coins.Equal(dec(6)) || !aliceSnap.Fiat.Equal(dec(3750 + 1500)) {
		t.Errorf("alice = coins %s fiat %s, want 6 / 5250", aliceSnap.Coins, aliceSnap.Fiat)
	}
	if !bobSnap.Coins.Equal(dec(8)) || !bobSnap.Fiat.Equal(dec(0)) {
		t.Errorf("bob = coins %s fiat %s, want 8 / 0", bobSnap.Coins, bobSnap.Fiat)
	}

	for _, o := range ex.DumpState().Orders {
		if !o.Executed {
			t.Errorf("order %s not executed after equal cross", o.ID)
		}
	}
}

func TestCrossingOrderIndependence(t *testing.T) {
	// Same pair, submitted buy-first: the outcome must be identical.
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750)
	bob := mustCreate(t, ex, "bob", 1500)

	if _, err := ex.SubmitOrder(bob, book.Buy, dec(4)); err != nil {
		t.Fatalf("buy refused: %v", err)
	}
	fills, err := ex.SubmitOrder(alice, book.Sell, dec(4))
	if err != nil {
		t.Fatalf("sell refused: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}

	if got := coins(t, ex, bob); !got.Equal(dec(8)) {
		t.Errorf("bob coins = %s, want 8", got)
	}
	aliceSnap, _ := ex.WalletSnapshot(alice)
	if !aliceSnap.Fiat.Equal(dec(5250)) {
		t.Errorf("alice fiat = %s, want 5250", aliceSnap.Fiat)
	}
}

func TestCrossingLargerOrderStaysOpenAtOriginalQuantity(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 37500) // 100 coins
	bob := mustCreate(t, ex, "bob", 3750)      // 10 coins, 3750 fiat

	if _, err := ex.SubmitOrder(bob, book.Buy, dec(10)); err != nil {
		t.Fatalf("buy refused: %v", err)
	}
	if _, err := ex.SubmitOrder(alice, book.Sell, dec(4)); err != nil {
		t.Fatalf("sell refused: %v", err)
	}

	st := ex.DumpState()
	var buy, sell book.Order
	for _, o := range st.Orders {
		switch o.Side {
		case book.Buy:
			buy = o
		case book.Sell:
			sell = o
		}
	}
	if !sell.Executed {
		t.Error("smaller sell should be executed")
	}
	if buy.Executed {
		t.Error("larger buy should stay open")
	}
	if !buy.Qty.Equal(dec(10)) {
		t.Errorf("buy qty = %s, want original 10 (no partial reduction)", buy.Qty)
	}
}

func TestWalletSnapshotUnknown(t *testing.T) {
	ex := newExchange()
	if _, err := ex.WalletSnapshot(42); !errors.Is(err, wallet.ErrUnknownWallet) {
		t.Errorf("err = %v, want ErrUnknownWallet", err)
	}
}

func TestExecutedOrdersCount(t *testing.T) {
	ex := newExchange()
	alice := mustCreate(t, ex, "alice", 3750)
	bob := mustCreate(t, ex, "bob", 1500)

	ex.SubmitOrder(alice, book.Sell, dec(4))
	ex.SubmitOrder(bob, book.Buy, dec(4))

	got, err := ex.ExecutedOrders(alice)
	if err != nil || got != 1 {
		t.Errorf("executed(alice) = %d (%v), want 1", got, err)
	}
}
