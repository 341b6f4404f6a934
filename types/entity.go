package types

import (
	"fmt"
	"math"
)

// EntityID is an opaque handle into dense entity arrays. It carries no data.
type EntityID uint32

// NoEntity is the invalid entity. It also stands for "no parent" in the hierarchy.
const NoEntity EntityID = math.MaxUint32

// MaxEntityID is the largest id the entities handler will hand out.
const MaxEntityID = NoEntity - 1

func (e EntityID) Valid() bool {
	return e != NoEntity
}

func (e EntityID) String() string {
	if e == NoEntity {
		return "none"
	}
	return fmt.Sprintf("%d", uint32(e))
}

// Range is the half open entity range [First, Last).
type Range struct {
	First EntityID `json:"first"`
	Last  EntityID `json:"last"`
}

func NewRange(first EntityID, count int) Range {
	return Range{First: first, Last: first + EntityID(count)} //nolint:gosec // count is bounded by MaxEntityID
}

// Len returns the number of entities covered by the range.
func (r Range) Len() int {
	if r.Last <= r.First {
		return 0
	}
	return int(r.Last - r.First)
}

func (r Range) Empty() bool {
	return r.Len() == 0
}

func (r Range) Contains(id EntityID) bool {
	return id >= r.First && id < r.Last
}

// Shift moves the range by offset. Fab ranges are claimed in local ids and shifted once realized.
func (r Range) Shift(offset EntityID) Range {
	return Range{First: r.First + offset, Last: r.Last + offset}
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.First, r.Last)
}

// RangesContain reports whether any of the ranges covers id.
func RangesContain(ranges []Range, id EntityID) bool {
	for _, r := range ranges {
		if r.Contains(id) {
			return true
		}
	}
	return false
}
