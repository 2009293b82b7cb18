package ir

// ControlFlowGraph is the successor relation over a function's basic
// blocks, plus the per-block set of source variable names a φ elsewhere
// in the function credits to that block as a predecessor. The latter is
// what keeps dead-code elimination from stripping a source-named
// definition whose only use is a downstream φ's merge list.
type ControlFlowGraph struct {
	Blocks        []BasicBlock
	blockIndex    map[string]int
	Successors    map[string][]string
	UsedVariables map[string]map[string]bool
}

// BuildControlFlowGraph derives successors from each block's terminator
// (or fall-through when none) and collects the variables every φ in the
// function reads from each of its predecessor blocks. Ported from
// original_source/src/opt/controlflow.rs.
func BuildControlFlowGraph(blocks []BasicBlock) *ControlFlowGraph {
	cfg := &ControlFlowGraph{
		Blocks:        blocks,
		blockIndex:    make(map[string]int, len(blocks)),
		Successors:    make(map[string][]string, len(blocks)),
		UsedVariables: make(map[string]map[string]bool, len(blocks)),
	}
	for i, b := range blocks {
		cfg.blockIndex[b.Label.String()] = i
		cfg.UsedVariables[b.Label.String()] = make(map[string]bool)
	}

	for i, b := range blocks {
		key := b.Label.String()
		if term, ok := b.Terminator(); ok {
			switch term.Kind {
			case SsaJump:
				cfg.Successors[key] = []string{term.Label.String()}
			case SsaBranch:
				cfg.Successors[key] = []string{term.BranchTrue.String(), term.BranchFalse.String()}
			case SsaReturn:
				cfg.Successors[key] = nil
			}
			continue
		}
		if i+1 < len(blocks) {
			cfg.Successors[key] = []string{blocks[i+1].Label.String()}
		} else {
			cfg.Successors[key] = nil
		}
	}

	for _, b := range blocks {
		for _, s := range b.Statements {
			if s.Kind != SsaPhi {
				continue
			}
			for _, arm := range s.Phi.Merging {
				if arm.Value.Kind != AddrSource {
					continue
				}
				predKey := arm.From.String()
				if set, ok := cfg.UsedVariables[predKey]; ok {
					set[arm.Value.Name] = true
				}
			}
		}
	}

	return cfg
}

// BlockByLabel looks up a block by its entry label.
func (cfg *ControlFlowGraph) BlockByLabel(l Label) (BasicBlock, bool) {
	idx, ok := cfg.blockIndex[l.String()]
	if !ok {
		return BasicBlock{}, false
	}
	return cfg.Blocks[idx], true
}
