// Copyright 2025 Certen Protocol
//
// Evidence Commitment
// Validates evidence references and builds the Merkle commitment that
// binds them without ever holding the underlying bytes.

package evidence

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/commitment"
	"github.com/Compliledger/Zkp-Assestation-gemini3/pkg/merkle"
)

var (
	ErrEmptyEvidence    = errors.New("evidence: at least one item is required")
	ErrInvalidURI       = errors.New("evidence: uri must be 1-2048 characters")
	ErrInvalidDigest    = errors.New("evidence: hash must be 64 lowercase hex characters")
	ErrInvalidType      = errors.New("evidence: type must be 1-64 characters")
)

const (
	maxURILength  = 2048
	maxTypeLength = 64
)

// Item is a single evidence reference as submitted by the caller.
type Item struct {
	URI  string `json:"uri"`
	Hash string `json:"hash"`
	Type string `json:"type"`
}

// RecordItem is an Item after validation and local-identifier assignment.
type RecordItem struct {
	Item
	LocalID string `json:"local_id"`
}

// Commitment is the full evidence commitment produced by Commit.
type Commitment struct {
	Items          []RecordItem `json:"items"`
	MerkleRoot     string       `json:"merkle_root"`
	CommitmentHash string       `json:"commitment_hash"`
	LeafCount      int          `json:"leaf_count"`
	TreeHeight     int          `json:"tree_height"`
}

// idCounter assigns EV-YYYYMMDD-NNNN identifiers with a per-day monotonic
// counter. Safe for concurrent use across requests.
type idCounter struct {
	mu      sync.Mutex
	day     string
	counter int
}

var localIDs = &idCounter{}

func (c *idCounter) next(now time.Time) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	day := now.Format("20060102")
	if day != c.day {
		c.day = day
		c.counter = 0
	}
	c.counter++
	return fmt.Sprintf("EV-%s-%04d", day, c.counter)
}

func validateItem(idx int, item Item) error {
	if len(item.URI) == 0 || len(item.URI) > maxURILength {
		return fmt.Errorf("%w: item %d", ErrInvalidURI, idx)
	}
	if len(item.Hash) != 64 {
		return fmt.Errorf("%w: item %d", ErrInvalidDigest, idx)
	}
	if _, err := hex.DecodeString(item.Hash); err != nil {
		return fmt.Errorf("%w: item %d", ErrInvalidDigest, idx)
	}
	for _, r := range item.Hash {
		if r >= 'A' && r <= 'F' {
			return fmt.Errorf("%w: item %d (uppercase hex)", ErrInvalidDigest, idx)
		}
	}
	if len(item.Type) == 0 || len(item.Type) > maxTypeLength {
		return fmt.Errorf("%w: item %d", ErrInvalidType, idx)
	}
	return nil
}

// Commit validates evidence items, assigns local identifiers, builds the
// Merkle tree over their digests, and computes the commitment hash that
// binds the record independently of the Merkle layout.
func Commit(items []Item, now time.Time) (*Commitment, error) {
	if len(items) == 0 {
		return nil, ErrEmptyEvidence
	}

	records := make([]RecordItem, len(items))
	leaves := make([][]byte, len(items))
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return nil, err
		}
		records[i] = RecordItem{Item: item, LocalID: localIDs.next(now)}

		leaf, err := hex.DecodeString(item.Hash)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d", ErrInvalidDigest, i)
		}
		leaves[i] = leaf
	}

	tree, err := merkle.BuildTree(leaves)
	if err != nil {
		return nil, fmt.Errorf("evidence: build merkle tree: %w", err)
	}

	hashInput := make([]map[string]string, len(records))
	for i, r := range records {
		hashInput[i] = map[string]string{"uri": r.URI, "hash": r.Hash, "type": r.Type}
	}
	commitmentHash, err := commitment.HashCanonical(hashInput)
	if err != nil {
		return nil, fmt.Errorf("evidence: compute commitment hash: %w", err)
	}

	return &Commitment{
		Items:          records,
		MerkleRoot:     tree.RootHex(),
		CommitmentHash: commitmentHash,
		LeafCount:      tree.LeafCount(),
		TreeHeight:     tree.TreeHeight(),
	}, nil
}
