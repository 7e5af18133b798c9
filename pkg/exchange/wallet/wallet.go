package wallet

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// SystemID is the reserved identifier of the implicit issuing wallet.
// It never appears in the registry and has unlimited coin supply.
const SystemID uint32 = math.MaxUint32

// MaxOwnerLen bounds the owner name in bytes.
const MaxOwnerLen = 255

var (
	ErrUnknownWallet = errors.New("unknown wallet")
	ErrNameTooLong   = errors.New("owner name too long")
)

// Wallet holds a fiat balance for one participant. Coin balances are not
// stored here: they are derived by replaying the transaction ledger.
type Wallet struct {
	ID    uint32
	Owner string
	Fiat  decimal.Decimal
}

// Registry owns all wallet records. Wallets are kept in enrollment order;
// that order is observable (investor ranking breaks ties by it).
type Registry struct {
	wallets []*Wallet
	byID    map[uint32]*Wallet

	genID func() uint32 // overridable in tests
}

func NewRegistry() *Registry {
	return &Registry{
		byID:  make(map[uint32]*Wallet),
		genID: rand.Uint32,
	}
}

// Restore rebuilds a registry from persisted wallet records,
// preserving their enrollment order and ids.
func Restore(wallets []Wallet) *Registry {
	r := NewRegistry()
	for i := range wallets {
		w := wallets[i]
		r.wallets = append(r.wallets, &w)
		r.byID[w.ID] = &w
	}
	return r
}

// Create enrolls a new wallet with a fresh registry-unique random 32-bit id.
// Ids colliding with an existing wallet or the system sentinel are redrawn.
func (r *Registry) Create(owner string, fiat decimal.Decimal) (*Wallet, error) {
	if len(owner) > MaxOwnerLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrNameTooLong, len(owner), MaxOwnerLen)
	}

	var id uint32
	for {
		id = r.genID()
		if id == SystemID {
			continue
		}
		if _, taken := r.byID[id]; !taken {
			break
		}
	}

	w := &Wallet{ID: id, Owner: owner, Fiat: fiat}
	r.wallets = append(r.wallets, w)
	r.byID[id] = w
	return w, nil
}

func (r *Registry) Lookup(id uint32) (*Wallet, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// AdjustFiat applies a signed delta to a wallet's fiat balance.
// Only order settlement calls this.
func (r *Registry) AdjustFiat(id uint32, delta decimal.Decimal) error {
	w, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWallet, id)
	}
	w.Fiat = w.Fiat.Add(delta)
	return nil
}

// Remove unregisters a wallet. Used only to cancel an enrollment whose seed
// transfer was refused; wallets are never removed once seeded.
func (r *Registry) Remove(id uint32) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	delete(r.byID, id)
	for i, w := range r.wallets {
		if w.ID == id {
			r.wallets = append(r.wallets[:i], r.wallets[i+1:]...)
			return
		}
	}
}

// List returns the wallets in enrollment order.
// The slice is a copy; the pointed-to records are live.
func (r *Registry) List() []*Wallet {
	out := make([]*Wallet, len(r.wallets))
	copy(out, r.wallets)
	return out
}

// Dump returns value copies of all wallets for persistence.
func (r *Registry) Dump() []Wallet {
	out := make([]Wallet, 0, len(r.wallets))
	for _, w := range r.wallets {
		out = append(out, *w)
	}
	return out
}

func (r *Registry) Count() int { return len(r.wallets) }
