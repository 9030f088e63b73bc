package blockchain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashBlockIsDeterministic(t *testing.T) {
	block := &Block{
		Index:        2,
		PreviousHash: "abc",
		Proof:        35293,
		Timestamp:    1700000000000,
		Transactions: []Transaction{{Sender: "A", Recipient: "B", Amount: 5}},
	}
	first := HashBlock(block)
	require.Len(t, first, 64)
	require.Equal(t, first, HashBlock(block))
	require.Equal(t, first, HashBlock(block.Clone()))
}

func TestHashBlockIgnoresFieldOrder(t *testing.T) {
	a := &Block{
		Index:        3,
		Timestamp:    42,
		Transactions: []Transaction{{Sender: "C", Recipient: "D", Amount: 3}},
		Proof:        7,
		PreviousHash: "ff",
	}
	b := &Block{
		PreviousHash: "ff",
		Proof:        7,
		Transactions: []Transaction{{Amount: 3, Recipient: "D", Sender: "C"}},
		Timestamp:    42,
		Index:        3,
	}
	require.Equal(t, HashBlock(a), HashBlock(b))

	// the same block received as JSON with keys in another order
	decoded, err := DecodeBlock([]byte(`{
		"transactions": [{"sender": "C", "amount": 3, "recipient": "D"}],
		"timestamp": 42,
		"proof": 7,
		"previous_hash": "ff",
		"index": 3
	}`))
	require.NoError(t, err)
	require.Equal(t, HashBlock(a), HashBlock(decoded))
}

func TestEncodeBlockNilTransactions(t *testing.T) {
	withNil := &Block{Index: 1, PreviousHash: "1", Proof: 100}
	withEmpty := NewGenesisBlock()
	require.Equal(t, EncodeBlock(withEmpty), EncodeBlock(withNil))
	require.Equal(t,
		`{"index":1,"previous_hash":"1","proof":100,"timestamp":0,"transactions":[]}`,
		string(EncodeBlock(withEmpty)))
}

func TestHashBlockDetectsChanges(t *testing.T) {
	block := NewGenesisBlock()
	base := HashBlock(block)

	changed := block.Clone()
	changed.Proof++
	require.NotEqual(t, base, HashBlock(changed))

	changed = block.Clone()
	changed.Transactions = append(changed.Transactions, Transaction{Sender: "A", Recipient: "B"})
	require.NotEqual(t, base, HashBlock(changed))
}

func TestHasherAlgorithms(t *testing.T) {
	sha, err := NewHasher(SHA256)
	require.NoError(t, err)
	b3, err := NewHasher("BLAKE3")
	require.NoError(t, err)
	require.Equal(t, BLAKE3, b3.Algorithm())
	require.Equal(t, SHA256, Hasher{}.Algorithm())

	block := NewGenesisBlock()
	require.Equal(t, HashBlock(block), sha.HashBlock(block))
	require.Len(t, b3.HashBlock(block), 64)
	require.NotEqual(t, sha.HashBlock(block), b3.HashBlock(block))

	_, err = NewHasher("md5")
	require.Error(t, err)
}

func TestChainRoundTrip(t *testing.T) {
	l := newTestLedger(t, 2)
	mineBlocks(t, l, 2)
	chain := l.Chain()

	decoded, err := DecodeChain(EncodeChain(chain))
	require.NoError(t, err)
	require.Len(t, decoded, len(chain))
	for i := range chain {
		require.Equal(t, HashBlock(chain[i]), HashBlock(decoded[i]))
	}

	_, err = DecodeChain([]byte(`{"not": "a chain"}`))
	require.Error(t, err)
}
