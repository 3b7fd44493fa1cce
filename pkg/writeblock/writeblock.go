// Package writeblock implements the gathered-write protocol (§4.7.1):
// a large client-side write arrives as a series of chunks belonging to
// one logical write per vnid, buffered server-side until Commit.
package writeblock

import (
	"github.com/sharewire/sharewire/internal/shareerr"
)

// MaxTotalLen is the largest totalLen a first chunk may advertise.
const MaxTotalLen = 10 * 1024 * 1024 // 10 MiB

// Block is one buffered write in progress for a single vnid.
type Block struct {
	Vnid     uint64
	TotalLen int64
	// Offset is the file position the first chunk declared; Commit
	// writes the assembled bytes starting here.
	Offset  int64
	buf     []byte
	written int64
}

// Table holds at most one active write block per vnid for a single
// session, per §4.7.1's invariant.
type Table struct {
	blocks map[uint64]*Block
}

// New returns an empty table.
func New() *Table {
	return &Table{blocks: make(map[uint64]*Block)}
}

// Len returns the number of write blocks currently in progress, for
// metrics. Like the rest of Table, it assumes single-goroutine access.
func (t *Table) Len() int {
	return len(t.blocks)
}

// Begin allocates a new block for vnid sized totalLen starting at
// offset, the first chunk of a gathered write. It rejects a totalLen
// over MaxTotalLen and a second Begin for a vnid that already has an
// active block.
func (t *Table) Begin(vnid uint64, offset, totalLen int64) error {
	if totalLen > MaxTotalLen {
		return shareerr.NewInvalid("write block exceeds maximum total length")
	}
	if _, exists := t.blocks[vnid]; exists {
		return shareerr.NewInvalid("a write block is already active for this vnid")
	}
	t.blocks[vnid] = &Block{Vnid: vnid, TotalLen: totalLen, Offset: offset, buf: make([]byte, 0, totalLen)}
	return nil
}

// Append adds bytes to the active block for vnid, a subsequent chunk
// of a gathered write (totalLen == 0 on the wire). Returns
// shareerr.InvalidHandle if no block is active for vnid.
func (t *Table) Append(vnid uint64, data []byte) error {
	b, ok := t.blocks[vnid]
	if !ok {
		return shareerr.NewInvalidHandle()
	}
	b.buf = append(b.buf, data...)
	b.written += int64(len(data))
	return nil
}

// Commit removes and returns the completed block for vnid, the bytes
// to write starting at the file's declared offset. The caller is
// responsible for the open/seek/write/reply sequence described in
// §4.7.1; this table only owns the buffering invariant.
//
// A second Commit for a vnid with no active block returns NotFound,
// not InvalidHandle: §8's idempotence law treats a repeated commit as
// "the write block is gone", the same as ENOENT, rather than as a
// malformed handle.
func (t *Table) Commit(vnid uint64) (*Block, error) {
	b, ok := t.blocks[vnid]
	if !ok {
		return nil, shareerr.New(shareerr.NotFound, "no active write block for this vnid")
	}
	delete(t.blocks, vnid)
	return b, nil
}

// Discard drops the active block for vnid without returning its
// contents, used on session teardown per §4.7.1 ("session teardown
// discards any uncommitted blocks").
func (t *Table) Discard(vnid uint64) {
	delete(t.blocks, vnid)
}

// DiscardAll drops every active block, used on full session teardown.
func (t *Table) DiscardAll() {
	t.blocks = make(map[uint64]*Block)
}

// Bytes returns the block's buffered contents.
func (b *Block) Bytes() []byte {
	return b.buf
}
