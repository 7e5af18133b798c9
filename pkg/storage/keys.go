package storage

import "encoding/binary"

// Pebble key schema. Each entity collection gets its own prefix; records are
// keyed by their big-endian position in the collection so a prefix scan
// replays them in append order:
//
//	w:<seq>   → wallet (enrollment order)
//	tx:<seq>  → transaction (ledger order)
//	ord:<seq> → order (submission order)
const (
	prefixWallet      = "w:"
	prefixTransaction = "tx:"
	prefixOrder       = "ord:"
)

func seqKey(prefix string, seq uint64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], seq)
	return k
}

func walletKey(seq uint64) []byte      { return seqKey(prefixWallet, seq) }
func transactionKey(seq uint64) []byte { return seqKey(prefixTransaction, seq) }
func orderKey(seq uint64) []byte       { return seqKey(prefixOrder, seq) }

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
