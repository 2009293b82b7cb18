// Package regalloc implements the linear-scan register allocator of
// spec.md §4.6: sorted intervals, an active set pruned by expiry, spilling
// to 8-byte stack slots when the free pool is empty, full-body
// pre-coloring for function parameters, and a post-scan invariant check.
// Ported from original_source/src/asmgen/regalloc.rs and extended per
// spec.md beyond the original (the original pre-colors only the first
// three parameters and has no recheck pass).
package regalloc

import (
	"fmt"
	"sort"

	"ccompiler/internal/ir"
)

// Register is an opaque allocatable register id; the caller (internal/codegen)
// maps it to a concrete AArch64 register name.
type Register int

// Location is where an address lives after allocation: either a register
// or a spill slot at a negative offset from the frame.
type Location struct {
	IsSpill bool
	Reg     Register
	Offset  int // valid when IsSpill; a negative multiple of 8
}

func (l Location) String() string {
	if l.IsSpill {
		return fmt.Sprintf("spill(%d)", l.Offset)
	}
	return fmt.Sprintf("reg(%d)", l.Reg)
}

type Allocation struct {
	Addr     ir.Address
	Location Location
	Lifetime ir.Lifetime
}

// Allocator holds the result of one function's linear scan.
type Allocator struct {
	allocations map[ir.Address]Allocation
	byIndex     []Allocation // stable order, for used-registers-at scans
	SpillBytes  int
}

// Allocate runs linear-scan over fn using liveness, a pool of registers
// available to the allocator (reserved scratch/precolor registers must
// already be excluded from available), and a map of parameter addresses
// to their pre-colored argument registers. Returns an error only if the
// post-scan invariant (no two overlapping lifetimes share a location) is
// violated, which would indicate an allocator bug.
func Allocate(fn *ir.FunctionDef, liveness *ir.LivenessInfo, available []Register, precolored map[ir.Address]Register) (*Allocator, error) {
	a := &Allocator{allocations: make(map[ir.Address]Allocation)}

	fullBody := ir.Lifetime{Start: 0, End: len(fn.Body) - 1}
	if len(fn.Body) == 0 {
		fullBody = ir.Lifetime{Start: 0, End: 0}
	}
	for addr, reg := range precolored {
		alloc := Allocation{Addr: addr, Location: Location{Reg: reg}, Lifetime: fullBody}
		a.allocations[addr] = alloc
		a.byIndex = append(a.byIndex, alloc)
	}

	type interval struct {
		addr ir.Address
		lt   ir.Lifetime
	}
	var intervals []interval
	for addr, lt := range liveness.Lifetimes {
		if _, isParam := precolored[addr]; isParam {
			continue
		}
		intervals = append(intervals, interval{addr: addr, lt: lt})
	}
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].lt.Start != intervals[j].lt.Start {
			return intervals[i].lt.Start < intervals[j].lt.Start
		}
		return addrKey(intervals[i].addr) < addrKey(intervals[j].addr)
	})

	free := make([]Register, len(available))
	copy(free, available)

	var active []Allocation
	popFree := func() (Register, bool) {
		if len(free) == 0 {
			return 0, false
		}
		r := free[0]
		free = free[1:]
		return r, true
	}
	expire := func(start int) {
		var stillActive []Allocation
		for _, al := range active {
			if al.Lifetime.End < start {
				if !al.Location.IsSpill {
					free = append(free, al.Location.Reg)
				}
				continue
			}
			stillActive = append(stillActive, al)
		}
		active = stillActive
	}

	for _, iv := range intervals {
		expire(iv.lt.Start)
		var loc Location
		if reg, ok := popFree(); ok {
			loc = Location{Reg: reg}
		} else {
			a.SpillBytes += 8
			loc = Location{IsSpill: true, Offset: -a.SpillBytes}
		}
		alloc := Allocation{Addr: iv.addr, Location: loc, Lifetime: iv.lt}
		a.allocations[iv.addr] = alloc
		a.byIndex = append(a.byIndex, alloc)
		active = append(active, alloc)
	}

	if err := a.recheck(); err != nil {
		return nil, err
	}
	return a, nil
}

// recheck verifies no two allocations with overlapping lifetimes share a
// location, per spec.md §4.6's mandated post-scan invariant.
func (a *Allocator) recheck() error {
	for i := 0; i < len(a.byIndex); i++ {
		for j := i + 1; j < len(a.byIndex); j++ {
			x, y := a.byIndex[i], a.byIndex[j]
			if !x.Lifetime.Overlaps(y.Lifetime) {
				continue
			}
			if x.Location.IsSpill != y.Location.IsSpill {
				continue
			}
			if x.Location.IsSpill && x.Location.Offset == y.Location.Offset {
				return fmt.Errorf("allocator invariant violated: overlapping lifetimes %v/%v share spill slot %d", x.Addr, y.Addr, x.Location.Offset)
			}
			if !x.Location.IsSpill && x.Location.Reg == y.Location.Reg {
				return fmt.Errorf("allocator invariant violated: overlapping lifetimes %v/%v share register %d", x.Addr, y.Addr, x.Location.Reg)
			}
		}
	}
	return nil
}

// LocationOf returns addr's allocation if instrIndex lies within its
// lifetime. Returns false for a never-used constant, which has no entry.
func (a *Allocator) LocationOf(addr ir.Address, instrIndex int) (Location, bool) {
	alloc, ok := a.allocations[addr]
	if !ok {
		return Location{}, false
	}
	if instrIndex < alloc.Lifetime.Start || instrIndex > alloc.Lifetime.End {
		return Location{}, false
	}
	return alloc.Location, true
}

// UsedRegistersAt lists every register live across instrIndex, used by the
// emitter to spill caller-saved registers around a Call.
func (a *Allocator) UsedRegistersAt(instrIndex int) []Register {
	var regs []Register
	for _, al := range a.byIndex {
		if al.Location.IsSpill {
			continue
		}
		if instrIndex >= al.Lifetime.Start && instrIndex <= al.Lifetime.End {
			regs = append(regs, al.Location.Reg)
		}
	}
	return regs
}

func addrKey(a ir.Address) string {
	return fmt.Sprintf("%d|%s|%d|%d|%s", a.Kind, a.Name, a.Version, a.Temp, a.StringLit)
}
