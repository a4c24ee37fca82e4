// Package regalloc implements the target's greedy-LRU-with-spill register
// allocator: a fixed pool of general-purpose registers, spilled to the
// current frame when exhausted, with fat pointers (address + bank)
// allocated, spilled, and reloaded as one atomic two-register unit.
package regalloc

// Register names one physical register in the target's file.
type Register string

// Fixed-purpose registers, never drawn from or returned to the pool.
const (
	ZERO      Register = "ZERO"      // hard-wired to the constant zero
	LINK      Register = "LINK"      // return-address, written by call/jump-and-link
	LINK_BANK Register = "LINK_BANK" // return bank, paired with LINK
	SB        Register = "SB"        // stack bank
	GB        Register = "GB"        // global bank
	SP        Register = "SP"
	FP        Register = "FP"
	SCRATCH   Register = "SCRATCH" // reserved for computing spill addresses, outside ALLOC_POOL

	ARG0 Register = "ARG0"
	ARG1 Register = "ARG1"
	ARG2 Register = "ARG2"
	ARG3 Register = "ARG3"

	RET0 Register = "RET0"
	RET1 Register = "RET1"
)

// ArgRegs is ARG0..ARG3 in order, the registers the calling convention
// packs scalar/fat-pointer arguments into (spec.md §4.5).
var ArgRegs = []Register{ARG0, ARG1, ARG2, ARG3}

// AllocPool is the free list the allocator draws general-purpose
// temporaries from. The reference target provides 7 registers (spec.md
// §4.4); SCRATCH is deliberately excluded so spill-address computation
// never competes with value allocation.
var AllocPool = []Register{"R0", "R1", "R2", "R3", "R4", "R5", "R6"}

// CellsPerSlot is 1 for a scalar spill slot, 2 for a fat pointer's (§4.4
// "two consecutive slots").
func CellsPerSlot(fatPointer bool) int {
	if fatPointer {
		return 2
	}
	return 1
}
