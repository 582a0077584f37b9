package core

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// ComputeBidHash computes the commitment for a single accepted bid.
// This is used by both the engine (to build reveal digests) and validation (to verify them).
//
// Formula: Keccak256(seq + "|" + participant + "|" + address + "|" + item + "|" + quantity)
//
// The address is formatted as lowercase 0x-prefixed hex so the hash does not
// depend on checksum casing.
func ComputeBidHash(bid Bid) string {
	data := fmt.Sprintf("%d|%d|%s|%d|%d",
		bid.Seq, bid.Participant, strings.ToLower(bid.Address.Hex()), bid.Item, bid.Quantity)
	return hex.EncodeToString(crypto.Keccak256([]byte(data)))
}

// ComputeBidsDigest commits to an ordered list of bids.
//
// Formula: Keccak256(hash_0 + hash_1 + ... + hash_n) over the hex bid hashes in acceptance order.
func ComputeBidsDigest(bids []Bid) string {
	var sb strings.Builder
	for _, bid := range bids {
		sb.WriteString(ComputeBidHash(bid))
	}
	return hex.EncodeToString(crypto.Keccak256([]byte(sb.String())))
}
