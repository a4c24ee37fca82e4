// Package ssa computes control-flow and dominance facts over an
// ir.Function's basic blocks: predecessor/successor edges, the immediate
// dominator tree, and dominance frontiers. pkg/optimizer's dead-code pass
// uses Reachable (a successor walk) to find blocks unreachable from entry,
// and nothing else in the compiler consumes Dominators or
// DominanceFrontiers. Nothing in this compiler needs a separate SSA-renamed IR, since pkg/ir already keeps
// control flow explicit and uses Phi only at the two short-circuit sites
// (see pkg/ir's package doc) — so, unlike the teacher's pkg/ssa, this
// package does not rebuild a parallel Program/Block type, it operates
// directly on *ir.Function.
package ssa

import "github.com/rcc-project/rcc/pkg/ir"

// CFG holds the predecessor/successor edges of one function's basic
// blocks, keyed by block id.
type CFG struct {
	Preds map[ir.BlockID][]ir.BlockID
	Succs map[ir.BlockID][]ir.BlockID
	Order []ir.BlockID // block ids in the function's original layout order
}

// BuildCFG walks fn's terminators and records every edge. Blocks are
// assumed reachable in layout order starting from Blocks[0] (the entry
// block, per ir.Function's invariant).
func BuildCFG(fn *ir.Function) *CFG {
	cfg := &CFG{
		Preds: make(map[ir.BlockID][]ir.BlockID),
		Succs: make(map[ir.BlockID][]ir.BlockID),
	}
	for _, blk := range fn.Blocks {
		cfg.Order = append(cfg.Order, blk.ID)
		cfg.Preds[blk.ID] = nil
		cfg.Succs[blk.ID] = nil
	}
	for _, blk := range fn.Blocks {
		for _, succ := range successorsOf(blk.Term) {
			cfg.Succs[blk.ID] = append(cfg.Succs[blk.ID], succ)
			cfg.Preds[succ] = append(cfg.Preds[succ], blk.ID)
		}
	}
	return cfg
}

func successorsOf(term ir.Terminator) []ir.BlockID {
	switch t := term.(type) {
	case ir.Br:
		return []ir.BlockID{t.Target}
	case ir.CondBr:
		return []ir.BlockID{t.TrueBlk, t.FalseBlk}
	case ir.Ret, nil:
		return nil
	}
	return nil
}

// reversePostorder returns fn's reachable blocks (from entry) in reverse
// postorder — the iteration order the dominance algorithm below needs to
// converge in a single pass over an already-reducible CFG, and in few
// passes otherwise.
func reversePostorder(entry ir.BlockID, cfg *CFG) []ir.BlockID {
	var post []ir.BlockID
	visited := make(map[ir.BlockID]bool)
	var visit func(ir.BlockID)
	visit = func(b ir.BlockID) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range cfg.Succs[b] {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	// reverse in place
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// Dominators computes the immediate dominator of every block reachable
// from fn's entry block, using the iterative data-flow algorithm of
// Cooper, Harvey & Kennedy ("A Simple, Fast Dominance Algorithm") rather
// than Lengauer-Tarjan: function bodies here are small enough (no
// indirect branches, no irreducible loops from unstructured gotos — this
// language subset has neither) that the simpler fixed-point form
// converges in a handful of passes and needs no DFS-numbering
// preprocessing step. The entry block is its own immediate dominator.
func Dominators(fn *ir.Function) map[ir.BlockID]ir.BlockID {
	if len(fn.Blocks) == 0 {
		return nil
	}
	entry := fn.Blocks[0].ID
	cfg := BuildCFG(fn)
	rpo := reversePostorder(entry, cfg)

	rpoIndex := make(map[ir.BlockID]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[ir.BlockID]ir.BlockID)
	idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom ir.BlockID
			first := true
			for _, p := range cfg.Preds[b] {
				if _, ok := idom[p]; !ok {
					continue // predecessor not yet processed this pass
				}
				if first {
					newIdom = p
					first = false
					continue
				}
				newIdom = intersect(p, newIdom, idom, rpoIndex)
			}
			if first {
				continue // no processed predecessor yet
			}
			if prev, ok := idom[b]; !ok || prev != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(a, b ir.BlockID, idom map[ir.BlockID]ir.BlockID, rpoIndex map[ir.BlockID]int) ir.BlockID {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// DominanceFrontiers computes, for every block, the set of blocks where
// its dominance stops — the standard Cytron et al. definition, derived
// here from the immediate-dominator map Dominators produces.
func DominanceFrontiers(fn *ir.Function, idom map[ir.BlockID]ir.BlockID) map[ir.BlockID][]ir.BlockID {
	cfg := BuildCFG(fn)
	df := make(map[ir.BlockID][]ir.BlockID)
	for b := range idom {
		df[b] = nil
	}
	for _, blk := range fn.Blocks {
		preds := cfg.Preds[blk.ID]
		if len(preds) < 2 {
			continue
		}
		for _, p := range preds {
			if _, ok := idom[p]; !ok {
				continue // unreachable predecessor
			}
			runner := p
			for runner != idom[blk.ID] {
				df[runner] = appendUnique(df[runner], blk.ID)
				runner = idom[runner]
			}
		}
	}
	return df
}

func appendUnique(list []ir.BlockID, b ir.BlockID) []ir.BlockID {
	for _, existing := range list {
		if existing == b {
			return list
		}
	}
	return append(list, b)
}

// Reachable reports which blocks are reachable from fn's entry — the set
// pkg/optimizer's dead-block elimination keeps; anything else is deleted
// along with its instructions.
func Reachable(fn *ir.Function) map[ir.BlockID]bool {
	if len(fn.Blocks) == 0 {
		return nil
	}
	cfg := BuildCFG(fn)
	reach := make(map[ir.BlockID]bool)
	var visit func(ir.BlockID)
	visit = func(b ir.BlockID) {
		if reach[b] {
			return
		}
		reach[b] = true
		for _, s := range cfg.Succs[b] {
			visit(s)
		}
	}
	visit(fn.Blocks[0].ID)
	return reach
}
