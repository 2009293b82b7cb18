package ir

// Lifetime is the inclusive instruction-index range over which an address
// is live: from the statement that first defines or uses it to the
// statement that last does.
type Lifetime struct {
	Start, End int
}

func (l Lifetime) Overlaps(o Lifetime) bool {
	return l.Start <= o.End && o.Start <= l.End
}

// LivenessInfo is the per-address lifetime map for one function's
// straight-line body, the input to the linear-scan allocator. Parameter
// addresses are excluded: they are pre-colored to argument registers for
// the whole function body instead (see spec.md §4.5/§4.6). Ported from
// original_source/src/asmgen/regalloc.rs's analyze_lifetimes/
// alive_addresses_in_ssa.
type LivenessInfo struct {
	Lifetimes map[Address]Lifetime
}

func ComputeLiveness(fn *FunctionDef) *LivenessInfo {
	info := &LivenessInfo{Lifetimes: make(map[Address]Lifetime)}
	params := make(map[string]bool, len(fn.Parameters))
	for _, p := range fn.Parameters {
		params[p.Name] = true
	}

	touch := func(a Address, i int) {
		if a.IsConstant() {
			return
		}
		if a.Kind == AddrSource && params[a.Name] {
			return
		}
		if lt, ok := info.Lifetimes[a]; ok {
			if i < lt.Start {
				lt.Start = i
			}
			if i > lt.End {
				lt.End = i
			}
			info.Lifetimes[a] = lt
		} else {
			info.Lifetimes[a] = Lifetime{Start: i, End: i}
		}
	}

	for i, s := range fn.Body {
		if d, ok := s.DefinedAddress(); ok {
			touch(d, i)
		}
		for _, u := range s.UsedAddresses() {
			touch(u, i)
		}
	}
	return info
}
