package blockchain

// Pool buffers transactions awaiting inclusion in the next block.
// It does no locking of its own; the Ledger guards it together with the chain.
type Pool struct {
	txs []Transaction
}

func NewPool() *Pool {
	return &Pool{txs: make([]Transaction, 0)}
}

func (p *Pool) Add(tx Transaction) {
	p.txs = append(p.txs, tx)
}

// Drain returns the pending transactions in insertion order and empties the pool
func (p *Pool) Drain() []Transaction {
	out := p.txs
	p.txs = make([]Transaction, 0)
	return out
}

// Pending returns a copy of the pending transactions
func (p *Pool) Pending() []Transaction {
	out := make([]Transaction, len(p.txs))
	copy(out, p.txs)
	return out
}

func (p *Pool) Len() int {
	return len(p.txs)
}
