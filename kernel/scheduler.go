package kernel

import (
	"container/heap"
	"crypto/sha256"
	"encoding/binary"
)

// activationKind distinguishes starting a fresh reactor from resuming a
// suspended one.
type activationKind uint8

const (
	activationStart activationKind = iota
	activationResume
)

// activation is a pending unit of work in the engine's work queue: a
// multiset of "start this reactor" or "resume this suspended reactor with
// this value" entries.
type activation struct {
	kind      activationKind
	reactorID ReactorID
	value     any
	outcome   Outcome // only meaningful for activationResume

	orderKey uint64 // deterministic tie-break, see computeOrderKey
	seq      uint64 // insertion sequence, the final tie-break

	lineage map[callGroupID]struct{} // call-groups this activation belongs to, see callgroup.go
}

// computeOrderKey derives a deterministic sort key from the firing source
// and the edge's position in its fan-out: hash the two together with
// SHA-256 and take the first 8 bytes as a big-endian uint64. Same inputs
// always produce the same key, which is what lets a propagation chain
// reproduce an identical activation order across runs.
func computeOrderKey(source SourceKey, edgeIndex int) uint64 {
	h := sha256.New()
	h.Write([]byte(source.String()))
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(edgeIndex))
	h.Write(b[:])
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

// activationHeap implements heap.Interface, ordering by orderKey and
// breaking ties by insertion sequence so that activations with identical
// order keys still run in a fixed, reproducible order.
type activationHeap []activation

func (h activationHeap) Len() int { return len(h) }
func (h activationHeap) Less(i, j int) bool {
	if h[i].orderKey != h[j].orderKey {
		return h[i].orderKey < h[j].orderKey
	}
	return h[i].seq < h[j].seq
}
func (h activationHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *activationHeap) Push(x any) {
	*h = append(*h, x.(activation))
}

func (h *activationHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// workQueue is the engine's pending-activation multiset: a plain
// heap-backed priority queue. The kernel is strictly single-threaded, so
// there is never more than one producer or consumer and no backpressure
// to model, only deterministic ordering.
type workQueue struct {
	h       activationHeap
	nextSeq uint64
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	heap.Init(&q.h)
	return q
}

func (q *workQueue) push(a activation) {
	a.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.h, a)
}

func (q *workQueue) pop() (activation, bool) {
	if q.h.Len() == 0 {
		return activation{}, false
	}
	return heap.Pop(&q.h).(activation), true
}

func (q *workQueue) len() int { return q.h.Len() }
