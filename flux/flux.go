// Package flux holds the Record produced by a successful track read and
// the capture reconciler that turns a free-running flux capture plus a
// list of index-pulse times into whole-revolution data. The reconciler is
// a pure function: it has no knowledge of the transport, frame, or codec
// layers and can be exercised directly against hand-built inputs.
package flux

// Record is the result of one read_track call: a set of whole-revolution
// flux intervals aligned to the index pulses that bound them, plus the
// sample frequency they were measured against. The caller owns a Record
// outright; the session that produced it retains no reference.
type Record struct {
	// IndexTimes holds one tick-count per completed revolution, in
	// occurrence order.
	IndexTimes []uint32
	// FluxList holds the inter-transition tick intervals spanning the
	// revolutions in IndexTimes. Every element is >= 1.
	FluxList []uint32
	// SampleFreq is the Unit's sampling rate in ticks per second.
	SampleFreq uint32
}

// Reconcile clips the leading partial revolution from a decoded flux list
// using the first entry of indexList as the boundary, and drops that first
// entry from the returned index times.
//
// indexList must have at least one element (the caller always requests
// nr_revs+1 index times, so this holds for any valid read_track call).
// The first element locates the end of the partial revolution that
// preceded the first full one; everything before it is discarded, and the
// interval straddling the boundary is replaced by its residual portion
// lying after the index pulse.
//
// If fluxList's total is exhausted before the boundary is reached (a
// degenerate capture), Reconcile returns an empty flux list.
func Reconcile(fluxList []uint32, indexList []uint32) (outFlux []uint32, outIndex []uint32) {
	toIndex := int64(indexList[0])
	for i, v := range fluxList {
		toIndex -= int64(v)
		if toIndex < 0 {
			residual := make([]uint32, len(fluxList)-i)
			residual[0] = uint32(-toIndex)
			copy(residual[1:], fluxList[i+1:])
			return residual, indexList[1:]
		}
	}
	// Ran out of flux before reaching the index boundary.
	return []uint32{}, indexList[1:]
}
