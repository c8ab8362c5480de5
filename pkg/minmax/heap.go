// Package minmax implements a double-ended priority queue.
//
// A min-max heap keeps its elements in a single array where even levels are
// ordered as a min-heap and odd levels as a max-heap. The root holds the
// minimum and one of its two children holds the maximum, so both ends can be
// inspected in O(1) and removed in O(log n).
//
// Every inserted element is addressed by a [Handle] that stays valid until
// the element leaves the heap. Handles let callers re-weight an element
// after its priority changed externally, which a plain container/heap does
// not support without tracking indices by hand.
//
// # Usage
//
//	h := minmax.New[int](64)
//	a := h.Insert(3.0, 1)
//	h.Insert(7.5, 2)
//	h.Update(a, 9.0)
//	v, w := h.PopMax() // 1, 9.0
//
// Popping from an empty heap is a programming error and panics.
package minmax

import (
	"iter"
	"math"
	"math/bits"
)

// Handle identifies an element inside a [Heap].
type Handle int

// NoHandle is returned by lookups that found nothing.
const NoHandle Handle = -1

type entry[T any] struct {
	weight float64
	value  T
	handle Handle
}

// Heap is a min-max heap of values ordered by float64 weight. Equal weights
// are ordered by insertion, so pop order is deterministic.
//
// Heap is not safe for concurrent use.
type Heap[T any] struct {
	items []entry[T]
	pos   []int // handle -> index into items, -1 once removed
}

// New creates an empty heap with room for capacity elements.
func New[T any](capacity int) *Heap[T] {
	return &Heap[T]{
		items: make([]entry[T], 0, capacity),
		pos:   make([]int, 0, capacity),
	}
}

// Len returns the number of elements in the heap.
func (h *Heap[T]) Len() int { return len(h.items) }

// Empty reports whether the heap holds no elements.
func (h *Heap[T]) Empty() bool { return len(h.items) == 0 }

// Clear removes all elements. Previously issued handles become invalid.
func (h *Heap[T]) Clear() {
	h.items = h.items[:0]
	h.pos = h.pos[:0]
}

// Insert adds value with the given weight and returns its handle.
func (h *Heap[T]) Insert(weight float64, value T) Handle {
	hd := Handle(len(h.pos))
	h.pos = append(h.pos, len(h.items))
	h.items = append(h.items, entry[T]{weight: weight, value: value, handle: hd})
	h.pushUp(len(h.items) - 1)
	return hd
}

// MinWeight returns the smallest weight, or +Inf when the heap is empty.
func (h *Heap[T]) MinWeight() float64 {
	if len(h.items) == 0 {
		return math.Inf(1)
	}
	return h.items[0].weight
}

// MaxWeight returns the largest weight, or -Inf when the heap is empty.
func (h *Heap[T]) MaxWeight() float64 {
	if len(h.items) == 0 {
		return math.Inf(-1)
	}
	return h.items[h.maxIndex()].weight
}

// PopMin removes and returns the element with the smallest weight.
func (h *Heap[T]) PopMin() (T, float64) {
	if len(h.items) == 0 {
		panic("minmax: PopMin on empty heap")
	}
	e := h.items[0]
	h.removeAt(0)
	return e.value, e.weight
}

// PopMax removes and returns the element with the largest weight.
func (h *Heap[T]) PopMax() (T, float64) {
	if len(h.items) == 0 {
		panic("minmax: PopMax on empty heap")
	}
	i := h.maxIndex()
	e := h.items[i]
	h.removeAt(i)
	return e.value, e.weight
}

// Contains reports whether hd still refers to an element of the heap.
func (h *Heap[T]) Contains(hd Handle) bool {
	return hd >= 0 && int(hd) < len(h.pos) && h.pos[hd] >= 0
}

// Weight returns the current weight of hd.
func (h *Heap[T]) Weight(hd Handle) (float64, bool) {
	if !h.Contains(hd) {
		return 0, false
	}
	return h.items[h.pos[hd]].weight, true
}

// Update changes the weight of hd and restores heap order. It returns false
// when hd is no longer in the heap.
func (h *Heap[T]) Update(hd Handle, weight float64) bool {
	if !h.Contains(hd) {
		return false
	}
	i := h.pos[hd]
	h.items[i].weight = weight
	h.pushDown(i)
	h.pushUp(h.pos[hd])
	return true
}

// UpdateValue is like [Heap.Update] but also replaces the stored value.
func (h *Heap[T]) UpdateValue(hd Handle, weight float64, value T) bool {
	if !h.Contains(hd) {
		return false
	}
	h.items[h.pos[hd]].value = value
	return h.Update(hd, weight)
}

// Remove deletes hd from the heap.
func (h *Heap[T]) Remove(hd Handle) bool {
	if !h.Contains(hd) {
		return false
	}
	h.removeAt(h.pos[hd])
	return true
}

// Values iterates over the stored values in array order, which is neither
// ascending nor descending. The heap must not be modified during iteration.
func (h *Heap[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := range h.items {
			if !yield(h.items[i].value) {
				return
			}
		}
	}
}

// All iterates over (value, weight) pairs in array order.
func (h *Heap[T]) All() iter.Seq2[T, float64] {
	return func(yield func(T, float64) bool) {
		for i := range h.items {
			if !yield(h.items[i].value, h.items[i].weight) {
				return
			}
		}
	}
}

// =============================================================================
// Internals
// =============================================================================

func isMinLevel(i int) bool {
	// level = bits.Len(i+1)-1, min levels are even
	return bits.Len(uint(i+1))%2 == 1
}

func (h *Heap[T]) less(i, j int) bool {
	a, b := &h.items[i], &h.items[j]
	if a.weight != b.weight {
		return a.weight < b.weight
	}
	return a.handle < b.handle
}

func (h *Heap[T]) swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.pos[h.items[i].handle] = i
	h.pos[h.items[j].handle] = j
}

func (h *Heap[T]) maxIndex() int {
	switch len(h.items) {
	case 1:
		return 0
	case 2:
		return 1
	}
	if h.less(1, 2) {
		return 2
	}
	return 1
}

func (h *Heap[T]) removeAt(i int) {
	last := len(h.items) - 1
	h.pos[h.items[i].handle] = -1
	if i == last {
		h.items = h.items[:last]
		return
	}
	moved := h.items[last].handle
	h.items[i] = h.items[last]
	h.pos[moved] = i
	h.items = h.items[:last]
	h.pushDown(i)
	h.pushUp(h.pos[moved])
}

func (h *Heap[T]) pushUp(i int) {
	if i == 0 {
		return
	}
	p := (i - 1) / 2
	if isMinLevel(i) {
		if h.less(p, i) {
			h.swap(i, p)
			h.pushUpLevel(p, true)
		} else {
			h.pushUpLevel(i, false)
		}
		return
	}
	if h.less(i, p) {
		h.swap(i, p)
		h.pushUpLevel(p, false)
	} else {
		h.pushUpLevel(i, true)
	}
}

// pushUpLevel bubbles i up through its grandparents on a max or min level.
func (h *Heap[T]) pushUpLevel(i int, onMax bool) {
	for i > 2 {
		g := ((i-1)/2 - 1) / 2
		if (onMax && h.less(g, i)) || (!onMax && h.less(i, g)) {
			h.swap(i, g)
			i = g
			continue
		}
		return
	}
}

func (h *Heap[T]) pushDown(i int) {
	onMax := !isMinLevel(i)
	better := func(a, b int) bool {
		if onMax {
			return h.less(b, a)
		}
		return h.less(a, b)
	}

	n := len(h.items)
	for {
		first := 2*i + 1
		if first >= n {
			return
		}
		m := first
		for _, c := range [...]int{2*i + 2, 4*i + 3, 4*i + 4, 4*i + 5, 4*i + 6} {
			if c < n && better(c, m) {
				m = c
			}
		}
		if m <= 2*i+2 {
			if better(m, i) {
				h.swap(m, i)
			}
			return
		}
		if !better(m, i) {
			return
		}
		h.swap(m, i)
		if p := (m - 1) / 2; better(p, m) {
			h.swap(m, p)
		}
		i = m
	}
}
