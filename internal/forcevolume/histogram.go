package forcevolume

import (
	"fmt"
	"math"
	"sort"
)

// DefaultNumberOfBins is the histogram resolution used when no explicit
// value is configured.
const DefaultNumberOfBins = 100

// HistogramMove enumerates the four threshold moves.
type HistogramMove int

const (
	// MinUp narrows the range from below by one bin.
	MinUp HistogramMove = iota
	// MinDown widens the range from below, skipping empty bins.
	MinDown
	// MaxUp widens the range from above, skipping empty bins.
	MaxUp
	// MaxDown narrows the range from above by one bin.
	MaxDown
)

var histogramMoveNames = map[HistogramMove]string{
	MinUp:   "minUp",
	MinDown: "minDown",
	MaxUp:   "maxUp",
	MaxDown: "maxDown",
}

func (m HistogramMove) String() string {
	if name, ok := histogramMoveNames[m]; ok {
		return name
	}
	return fmt.Sprintf("move(%d)", int(m))
}

// ParseHistogramMove resolves a move name as used by the HTTP layer.
func ParseHistogramMove(name string) (HistogramMove, error) {
	for m, n := range histogramMoveNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown histogram move %q", name)
}

// HistogramState is the persistable threshold state of a histogram.
type HistogramState struct {
	Channel      string
	NumberOfBins int
	MinBinIndex  int
	MaxBinIndex  int
}

// Histogram narrows or widens the active-value range of one channel by
// moving a lower and an upper bin boundary. The bin edges span the full
// channel data and stay fixed; moves translate into registry activations
// and deactivations. Values keep their canonical order, NaN entries
// included, so value indices are CanonicalIds.
type Histogram struct {
	channel ChannelID
	values  []float64
	edges   []float64
	minIdx  int
	maxIdx  int
}

// NewHistogram builds a histogram over the full channel values with
// numberOfBins bins (DefaultNumberOfBins when <= 0). The threshold indices
// start wide open; Restrict narrows them to the active subset.
func NewHistogram(channel ChannelID, values []float64, numberOfBins int) (*Histogram, error) {
	if numberOfBins <= 0 {
		numberOfBins = DefaultNumberOfBins
	}
	lo, hi := NanMin(values), NanMax(values)
	if math.IsNaN(lo) {
		return nil, fmt.Errorf("channel %s has no finite values", channel)
	}
	return &Histogram{
		channel: channel,
		values:  append([]float64(nil), values...),
		edges:   Linspace(lo, hi, numberOfBins+1),
		minIdx:  0,
		maxIdx:  numberOfBins,
	}, nil
}

// Channel returns the channel the histogram operates on.
func (h *Histogram) Channel() ChannelID { return h.channel }

// NumberOfBins returns the bin count.
func (h *Histogram) NumberOfBins() int { return len(h.edges) - 1 }

// MinBinIndex returns the lower threshold position.
func (h *Histogram) MinBinIndex() int { return h.minIdx }

// MaxBinIndex returns the upper threshold position.
func (h *Histogram) MaxBinIndex() int { return h.maxIdx }

// Edges returns a copy of the bin edge positions.
func (h *Histogram) Edges() []float64 {
	return append([]float64(nil), h.edges...)
}

// Values returns a copy of the full channel values in canonical order.
func (h *Histogram) Values() []float64 {
	return append([]float64(nil), h.values...)
}

// ActiveValues returns the values of the currently active points in
// canonical order.
func (h *Histogram) ActiveValues(reg *PointRegistry) []float64 {
	out := make([]float64, 0, len(h.values))
	for id, v := range h.values {
		if reg.IsActive(id) {
			out = append(out, v)
		}
	}
	return out
}

// State returns the persistable threshold state.
func (h *Histogram) State() HistogramState {
	return HistogramState{
		Channel:      h.channel.String(),
		NumberOfBins: h.NumberOfBins(),
		MinBinIndex:  h.minIdx,
		MaxBinIndex:  h.maxIdx,
	}
}

// RestoreState replays a saved threshold state onto a freshly built
// histogram of the same channel and resolution.
func (h *Histogram) RestoreState(s HistogramState) error {
	if s.Channel != h.channel.String() {
		return fmt.Errorf("state is for channel %s, histogram holds %s", s.Channel, h.channel)
	}
	if s.NumberOfBins != h.NumberOfBins() {
		return fmt.Errorf("state has %d bins, histogram has %d", s.NumberOfBins, h.NumberOfBins())
	}
	if s.MinBinIndex < 0 || s.MinBinIndex >= s.MaxBinIndex || s.MaxBinIndex > h.NumberOfBins() {
		return fmt.Errorf("invalid threshold indices %d..%d", s.MinBinIndex, s.MaxBinIndex)
	}
	h.minIdx = s.MinBinIndex
	h.maxIdx = s.MaxBinIndex
	return nil
}

// Restrict narrows the threshold indices to bracket the active values: the
// lower index moves to the last edge at or below the smallest active value,
// the upper index to the first edge at or above the largest. With no finite
// active values the indices stay as they are.
func (h *Histogram) Restrict(reg *PointRegistry) {
	lo, hi := math.NaN(), math.NaN()
	for id, v := range h.values {
		if !reg.IsActive(id) || math.IsNaN(v) {
			continue
		}
		if math.IsNaN(lo) || v < lo {
			lo = v
		}
		if math.IsNaN(hi) || v > hi {
			hi = v
		}
	}
	if math.IsNaN(lo) {
		return
	}

	bins := h.NumberOfBins()
	minIdx := 0
	for i, e := range h.edges {
		if e <= lo {
			minIdx = i
		}
	}
	maxIdx := bins
	for i, e := range h.edges {
		if e >= hi {
			maxIdx = i
			break
		}
	}
	if minIdx > bins-1 {
		minIdx = bins - 1
	}
	if maxIdx < minIdx+1 {
		maxIdx = minIdx + 1
	}
	h.minIdx = minIdx
	h.maxIdx = maxIdx
}

// Shift performs one threshold move and applies the resulting activations
// or deactivations to the registry. It returns the CanonicalIds whose state
// changed, in ascending order. A move outside its guard condition is a
// silent no-op.
func (h *Histogram) Shift(move HistogramMove, reg *PointRegistry) ([]int, error) {
	bins := h.NumberOfBins()

	switch move {
	case MinUp:
		if h.minIdx >= h.maxIdx-1 {
			return nil, nil
		}
		h.minIdx++
		edge := h.edges[h.minIdx]
		var changed []int
		for id, v := range h.values {
			if v < edge && reg.IsActive(id) {
				changed = append(changed, id)
			}
		}
		if err := reg.DeactivateCanonical(changed...); err != nil {
			return nil, err
		}
		return changed, nil

	case MinDown:
		if h.minIdx <= 0 {
			return nil, nil
		}
		var changed []int
		for h.minIdx > 0 && len(changed) == 0 {
			oldEdge := h.edges[h.minIdx]
			h.minIdx--
			newEdge := h.edges[h.minIdx]
			for id, v := range h.values {
				if v >= newEdge && v < oldEdge && !reg.IsActive(id) {
					changed = append(changed, id)
				}
			}
		}
		if len(changed) == 0 {
			return nil, nil
		}
		if err := reg.ActivateCanonical(changed...); err != nil {
			return nil, err
		}
		return changed, nil

	case MaxUp:
		if h.maxIdx >= bins {
			return nil, nil
		}
		var changed []int
		for h.maxIdx < bins && len(changed) == 0 {
			oldEdge := h.edges[h.maxIdx]
			h.maxIdx++
			newEdge := h.edges[h.maxIdx]
			for id, v := range h.values {
				if v > oldEdge && v <= newEdge && !reg.IsActive(id) {
					changed = append(changed, id)
				}
			}
		}
		if len(changed) == 0 {
			return nil, nil
		}
		if err := reg.ActivateCanonical(changed...); err != nil {
			return nil, err
		}
		return changed, nil

	case MaxDown:
		if h.maxIdx <= h.minIdx+1 {
			return nil, nil
		}
		h.maxIdx--
		edge := h.edges[h.maxIdx]
		var changed []int
		for id, v := range h.values {
			if v > edge && reg.IsActive(id) {
				changed = append(changed, id)
			}
		}
		if err := reg.DeactivateCanonical(changed...); err != nil {
			return nil, err
		}
		return changed, nil
	}

	return nil, fmt.Errorf("unknown histogram move %d", move)
}

// BinCounts counts the given values into the histogram's bins. Bins are
// half open with the last bin including its upper edge; NaN and
// out-of-range values are dropped.
func (h *Histogram) BinCounts(values []float64) []int {
	bins := h.NumberOfBins()
	counts := make([]int, bins)
	lo, hi := h.edges[0], h.edges[bins]
	for _, v := range values {
		if math.IsNaN(v) || v < lo || v > hi {
			continue
		}
		idx := sort.SearchFloat64s(h.edges, v)
		if idx >= bins || h.edges[idx] > v {
			idx--
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	return counts
}
