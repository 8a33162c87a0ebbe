package ir

import (
	"iter"
	"slices"
)

// Block is an ordered instruction sequence. Code references into a block
// address instruction indices, with Len() as the one-past-the-end sentinel.
type Block struct {
	instrs []Instruction
}

// NewBlock builds a block from instrs. The slice is copied.
func NewBlock(instrs ...Instruction) Block {
	return Block{instrs: slices.Clone(instrs)}
}

// Len returns the instruction count.
func (b Block) Len() int { return len(b.instrs) }

// At returns instruction i.
func (b Block) At(i int) Instruction { return b.instrs[i] }

// Instructions iterates the block in order.
func (b Block) Instructions() iter.Seq2[int, Instruction] {
	return slices.All(b.instrs)
}
