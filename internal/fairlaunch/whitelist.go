package fairlaunch

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Whitelist is a sorted-pair keccak256 Merkle tree over contributor
// addresses. Leaves are keccak256(abi.encodePacked(address)).
type Whitelist struct {
	layers [][]common.Hash
	index  map[common.Hash]int
}

// NewWhitelist builds the tree; duplicate addresses are collapsed.
func NewWhitelist(addresses []common.Address) (*Whitelist, error) {
	seen := make(map[common.Hash]struct{}, len(addresses))
	leaves := make([]common.Hash, 0, len(addresses))
	for _, addr := range addresses {
		leaf := Leaf(addr)
		if _, ok := seen[leaf]; ok {
			continue
		}
		seen[leaf] = struct{}{}
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 0 {
		return nil, fmt.Errorf("whitelist is empty")
	}
	sort.Slice(leaves, func(i, j int) bool {
		return bytes.Compare(leaves[i][:], leaves[j][:]) < 0
	})

	index := make(map[common.Hash]int, len(leaves))
	for i, leaf := range leaves {
		index[leaf] = i
	}

	layers := [][]common.Hash{leaves}
	for current := leaves; len(current) > 1; {
		next := make([]common.Hash, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			if i+1 == len(current) {
				next = append(next, current[i])
				continue
			}
			next = append(next, hashPair(current[i], current[i+1]))
		}
		layers = append(layers, next)
		current = next
	}

	return &Whitelist{layers: layers, index: index}, nil
}

// Leaf hashes an address the way the contract does.
func Leaf(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes())
}

// Root is the value stored as whitelistRoot on the pool.
func (w *Whitelist) Root() common.Hash {
	top := w.layers[len(w.layers)-1]
	return top[0]
}

// Size is the number of distinct addresses.
func (w *Whitelist) Size() int {
	return len(w.layers[0])
}

// Proof returns the sibling path for addr.
func (w *Whitelist) Proof(addr common.Address) ([]common.Hash, error) {
	pos, ok := w.index[Leaf(addr)]
	if !ok {
		return nil, fmt.Errorf("address %s is not whitelisted", addr.Hex())
	}

	proof := make([]common.Hash, 0, len(w.layers))
	for _, layer := range w.layers[:len(w.layers)-1] {
		sibling := pos ^ 1
		if sibling < len(layer) {
			proof = append(proof, layer[sibling])
		}
		pos /= 2
	}
	return proof, nil
}

// VerifyProof checks a proof against root.
func VerifyProof(root common.Hash, addr common.Address, proof []common.Hash) bool {
	computed := Leaf(addr)
	for _, sibling := range proof {
		computed = hashPair(computed, sibling)
	}
	return computed == root
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a[:], b[:])
}

// ReadAddresses parses one address per line. Blank lines and lines starting
// with # are ignored; a trailing comma is tolerated.
func ReadAddresses(r io.Reader) ([]common.Address, error) {
	var out []common.Address
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), ",")
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if !common.IsHexAddress(text) {
			return nil, fmt.Errorf("line %d: invalid address %q", line, text)
		}
		out = append(out, common.HexToAddress(text))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
