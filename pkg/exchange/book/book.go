// Package book owns the submitted orders and the crossing engine.
//
// There is no price discovery: every cross settles at the fixed exchange
// rate, so the book has no price levels. Matching walks orders in
// submission order and pairs each open order with later counter-orders.
package book

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "unknown"
	}
}

// Order is created unexecuted; Executed flips to true exactly once, when the
// order is fully crossed. An order is never partially consumed: its stored
// quantity is never reduced, and an open order that outsizes its counterparty
// stays eligible for later crosses at its original quantity.
type Order struct {
	ID       string
	WalletID uint32
	Side     Side
	Qty      decimal.Decimal // coins, positive
	Executed bool
}

// Fill reports one settlement produced by a crossing pass.
type Fill struct {
	BuyOrderID  string
	SellOrderID string
	BuyerID     uint32
	SellerID    uint32
	Qty         decimal.Decimal
}

// SettleFunc moves Qty coins from seller to buyer and adjusts both fiat
// balances. A non-nil error refuses the cross and leaves both orders open.
type SettleFunc func(sellerID, buyerID uint32, qty decimal.Decimal) error

// Book holds all orders ever submitted this session, in submission order.
// Orders are never removed.
type Book struct {
	orders []*Order
}

func NewBook() *Book {
	return &Book{}
}

// Restore rebuilds a book from persisted orders, preserving submission order
// and executed flags.
func Restore(orders []Order) *Book {
	b := NewBook()
	for i := range orders {
		o := orders[i]
		b.orders = append(b.orders, &o)
	}
	return b
}

// Append records a new unexecuted order. The caller validates funds first.
func (b *Book) Append(walletID uint32, side Side, qty decimal.Decimal) *Order {
	o := &Order{
		ID:       uuid.NewString(),
		WalletID: walletID,
		Side:     side,
		Qty:      qty,
	}
	b.orders = append(b.orders, o)
	return o
}

// Cross runs the matching pass over the entire book. For each open order i in
// submission order it scans later open counter-orders j and settles
// min(buyQty, sellQty) coins through settle. The side whose whole quantity
// was consumed is marked executed; when the quantities are equal both sides
// close. The inner scan stops as soon as order i executes, so a given order
// funds at most one settlement per pass and is closed in one shot.
func (b *Book) Cross(settle SettleFunc) []Fill {
	var fills []Fill
	for i := 0; i < len(b.orders); i++ {
		oi := b.orders[i]
		if oi.Executed {
			continue
		}
		for j := i + 1; j < len(b.orders); j++ {
			oj := b.orders[j]
			if oj.Executed || oj.Side == oi.Side {
				continue
			}

			buy, sell := oi, oj
			if oi.Side == Sell {
				buy, sell = oj, oi
			}
			qty := decimal.Min(buy.Qty, sell.Qty)

			if err := settle(sell.WalletID, buy.WalletID, qty); err != nil {
				continue
			}

			switch buy.Qty.Cmp(sell.Qty) {
			case -1:
				buy.Executed = true
			case 1:
				sell.Executed = true
			default:
				buy.Executed = true
				sell.Executed = true
			}

			fills = append(fills, Fill{
				BuyOrderID:  buy.ID,
				SellOrderID: sell.ID,
				BuyerID:     buy.WalletID,
				SellerID:    sell.WalletID,
				Qty:         qty,
			})

			if oi.Executed {
				break
			}
		}
	}
	return fills
}

// Reserved sums the quantities of the wallet's own unexecuted orders of the
// given side. This is the amount already promised to open orders and hence
// unavailable for new submissions.
func (b *Book) Reserved(walletID uint32, side Side) decimal.Decimal {
	total := decimal.Zero
	for _, o := range b.orders {
		if o.WalletID == walletID && o.Side == side && !o.Executed {
			total = total.Add(o.Qty)
		}
	}
	return total
}

// ExecutedCount returns how many of the wallet's orders have executed.
func (b *Book) ExecutedCount(walletID uint32) int {
	count := 0
	for _, o := range b.orders {
		if o.WalletID == walletID && o.Executed {
			count++
		}
	}
	return count
}

// Dump returns value copies of all orders in submission order.
func (b *Book) Dump() []Order {
	out := make([]Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}

func (b *Book) Len() int { return len(b.orders) }
