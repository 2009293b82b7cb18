package ir

// OptimizationPass is one named transformation over a whole program.
// Interface shape reused directly from the teacher's
// internal/ir/optimizations.go (OptimizationPass/OptimizationPipeline) --
// one of the few pieces of teacher architecture that transfers unchanged;
// the pass bodies below implement spec's O1 pipeline instead of the
// teacher's gas-optimization passes.
type OptimizationPass interface {
	Name() string
	Description() string
	Apply(program *Program) bool
}

// OptimizationPipeline runs a fixed, ordered sequence of passes. O1 is
// exactly three passes and must run in this order: constant folding and
// dead-code elimination can each be skipped if nothing applies, but
// φ-elimination always runs last, after which no Phi survives.
type OptimizationPipeline struct {
	passes []OptimizationPass
}

func NewO1Pipeline() *OptimizationPipeline {
	p := &OptimizationPipeline{}
	p.AddPass(&ConstantFolding{})
	p.AddPass(&DeadCodeElimination{})
	p.AddPass(&PhiElimination{})
	return p
}

func (p *OptimizationPipeline) AddPass(pass OptimizationPass) {
	p.passes = append(p.passes, pass)
}

func (p *OptimizationPipeline) Run(program *Program) {
	for _, pass := range p.passes {
		pass.Apply(program)
	}
}

func flattenBlocks(blocks []BasicBlock) []Ssa {
	var body []Ssa
	for _, b := range blocks {
		body = append(body, b.Statements...)
	}
	return body
}

func forEachFunction(program *Program, f func(fn *FunctionDef) bool) bool {
	changed := false
	for i := range program.Items {
		if program.Items[i].Kind != ToplevelFunction {
			continue
		}
		if f(program.Items[i].Function) {
			changed = true
		}
	}
	return changed
}

// ConstantFolding evaluates quadruples whose operands are known constants
// within a single block, replacing them with a plain Assignment of the
// folded literal. Forward-propagates within the block only (spec.md §4.4
// scopes this pass to block-local reasoning). Ported from
// original_source/src/opt/constant_folding.rs.
type ConstantFolding struct{}

func (cf *ConstantFolding) Name() string { return "constant-folding" }
func (cf *ConstantFolding) Description() string {
	return "folds quadruples whose operands are known constants within a block"
}

func (cf *ConstantFolding) Apply(program *Program) bool {
	return forEachFunction(program, cf.foldFunction)
}

func (cf *ConstantFolding) foldFunction(fn *FunctionDef) bool {
	blocks := SplitBasicBlocks(fn.Body)
	changed := false
	for bi, block := range blocks {
		constants := make(map[Address]int64)
		stmts := make([]Ssa, len(block.Statements))
		copy(stmts, block.Statements)

		for i, s := range stmts {
			switch s.Kind {
			case SsaAssignment:
				if s.Source.Kind == AddrConstNumeric {
					constants[s.Dest] = s.Source.Numeric
				} else if v, ok := resolveConstant(s.Source, constants); ok {
					constants[s.Dest] = v
				}
			case SsaQuadruple:
				left, lok := resolveConstant(s.Quad.Left, constants)
				if !lok {
					continue
				}
				right := int64(0)
				rok := true
				if s.Quad.Right != nil {
					right, rok = resolveConstant(*s.Quad.Right, constants)
				}
				if !rok {
					continue
				}
				val := s.Quad.Op.Apply(left, right)
				constants[s.Quad.Dest] = val
				stmts[i] = MakeAssignment(s.Quad.Dest, NumericAddr(val), s.Quad.Width)
				changed = true
			case SsaReturn:
				if s.ReturnValue == nil {
					continue
				}
				if val, ok := resolveConstant(s.ReturnValue.Addr, constants); ok {
					stmts[i] = MakeReturn(&CallDest{Addr: NumericAddr(val), Width: s.ReturnValue.Width})
					changed = true
				}
			case SsaBranch:
				if val, ok := resolveConstant(s.BranchCond, constants); ok {
					stmts[i] = MakeBranch(s.BranchWidth, NumericAddr(val), s.BranchTrue, s.BranchFalse)
					changed = true
				}
			}
		}
		blocks[bi] = BasicBlock{Label: block.Label, Statements: stmts}
	}
	if changed {
		fn.Body = flattenBlocks(blocks)
	}
	return changed
}

func resolveConstant(a Address, constants map[Address]int64) (int64, bool) {
	if a.Kind == AddrConstNumeric {
		return a.Numeric, true
	}
	v, ok := constants[a]
	return v, ok
}

// DeadCodeElimination drops any statement whose defined address is never
// read, either by a later statement in the same block (the intra-block
// DFG) or by a φ in a successor block that credits this block as a
// predecessor (ControlFlowGraph.UsedVariables). Terminators, labels, and
// calls are never removed -- calls carry side effects even when their
// result is discarded. Ported from
// original_source/src/opt/dead_code_elimination.rs.
type DeadCodeElimination struct{}

func (dce *DeadCodeElimination) Name() string { return "dead-code-elimination" }
func (dce *DeadCodeElimination) Description() string {
	return "removes statements whose defined value is never read"
}

func (dce *DeadCodeElimination) Apply(program *Program) bool {
	return forEachFunction(program, dce.eliminateFunction)
}

func (dce *DeadCodeElimination) eliminateFunction(fn *FunctionDef) bool {
	blocks := SplitBasicBlocks(fn.Body)
	cfg := BuildControlFlowGraph(blocks)
	changed := false

	for bi, block := range blocks {
		dfg := BuildDataFlowGraph(block)
		var kept []Ssa
		for i, s := range block.Statements {
			switch s.Kind {
			case SsaLabel, SsaJump, SsaBranch, SsaReturn, SsaCall:
				kept = append(kept, s)
				continue
			}
			addr, ok := s.DefinedAddress()
			if !ok {
				kept = append(kept, s)
				continue
			}
			usedLocally := len(dfg.Uses(i)) > 0
			usedDownstream := false
			if addr.Kind == AddrSource {
				if set, ok := cfg.UsedVariables[block.Label.String()]; ok && set[addr.Name] {
					usedDownstream = true
				}
			}
			if usedLocally || usedDownstream {
				kept = append(kept, s)
			} else {
				changed = true
			}
		}
		blocks[bi] = BasicBlock{Label: block.Label, Statements: kept}
	}
	if changed {
		fn.Body = flattenBlocks(blocks)
	}
	return changed
}

// PhiElimination collapses every Source address to version 0 and drops
// every Phi statement. Because all versions of a name now alias the same
// address, a φ's job (merging the versions reaching a join) is already
// satisfied by the collapse; no move instructions need to be inserted.
// Must run last in the O1 pipeline. Ported from
// original_source/src/opt/phi_elim.rs.
type PhiElimination struct{}

func (pe *PhiElimination) Name() string        { return "phi-elimination" }
func (pe *PhiElimination) Description() string { return "collapses SSA versions and removes all Phis" }

func (pe *PhiElimination) Apply(program *Program) bool {
	return forEachFunction(program, pe.eliminateFunction)
}

func (pe *PhiElimination) eliminateFunction(fn *FunctionDef) bool {
	changed := false
	var body []Ssa
	for _, s := range fn.Body {
		if s.Kind == SsaPhi {
			changed = true
			continue
		}
		body = append(body, collapseVersions(s))
	}
	fn.Body = body
	return changed
}

func collapseAddr(a Address) Address {
	if a.Kind == AddrSource {
		a.Version = 0
	}
	return a
}

func collapseVersions(s Ssa) Ssa {
	switch s.Kind {
	case SsaAssignment:
		s.Dest = collapseAddr(s.Dest)
		s.Source = collapseAddr(s.Source)
	case SsaQuadruple:
		q := *s.Quad
		q.Dest = collapseAddr(q.Dest)
		q.Left = collapseAddr(q.Left)
		if q.Right != nil {
			r := collapseAddr(*q.Right)
			q.Right = &r
		}
		s.Quad = &q
	case SsaCall:
		s.CallFunc = collapseAddr(s.CallFunc)
		if s.CallDestination != nil {
			d := *s.CallDestination
			d.Addr = collapseAddr(d.Addr)
			s.CallDestination = &d
		}
		params := make([]CallParam, len(s.CallParams))
		for i, p := range s.CallParams {
			p.Value = collapseAddr(p.Value)
			params[i] = p
		}
		s.CallParams = params
	case SsaReturn:
		if s.ReturnValue != nil {
			v := *s.ReturnValue
			v.Addr = collapseAddr(v.Addr)
			s.ReturnValue = &v
		}
	case SsaBranch:
		s.BranchCond = collapseAddr(s.BranchCond)
	}
	return s
}
