package forcevolume

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ChannelID enumerates the derived per-point scalar channels.
type ChannelID int

const (
	// ChannelTopography is the piezo position of the point of contact, NaN
	// for artifact curves.
	ChannelTopography ChannelID = iota
	// ChannelForceDistanceTopography is the point of contact for every
	// curve, artifacts included.
	ChannelForceDistanceTopography
	// ChannelZPiezoAtMaxDeflection is the last corrected piezo position.
	ChannelZPiezoAtMaxDeflection
	// ChannelStiffness is the slope of a least-squares line through the
	// origin over the corrected curve.
	ChannelStiffness
	// ChannelAttractiveArea is the integral over the attractive segment.
	ChannelAttractiveArea
	// ChannelRawOffset is the intercept of the degree-1 fit over the raw
	// approach.
	ChannelRawOffset
	// ChannelRawStiffness is the slope of the degree-1 fit over the raw
	// approach.
	ChannelRawStiffness
	// ChannelMaxDeflection is the last corrected deflection sample.
	ChannelMaxDeflection
	// ChannelZAttractive is the attractive segment length in samples.
	ChannelZAttractive
	// ChannelDeflectionAttractive is the smallest corrected deflection.
	ChannelDeflectionAttractive
	// ChannelCurvesWithArtifacts marks curves whose contact part is not
	// monotonically increasing.
	ChannelCurvesWithArtifacts

	numChannels
)

var channelNames = [numChannels]string{
	ChannelTopography:              "topography",
	ChannelForceDistanceTopography: "forceDistanceTopography",
	ChannelZPiezoAtMaxDeflection:   "zPiezoAtMaximumDeflection",
	ChannelStiffness:               "stiffness",
	ChannelAttractiveArea:          "attractiveArea",
	ChannelRawOffset:               "rawOffset",
	ChannelRawStiffness:            "rawStiffness",
	ChannelMaxDeflection:           "maxDeflection",
	ChannelZAttractive:             "zAttractive",
	ChannelDeflectionAttractive:    "deflectionAttractive",
	ChannelCurvesWithArtifacts:     "curvesWithArtifacts",
}

func (id ChannelID) String() string {
	if id < 0 || id >= numChannels {
		return fmt.Sprintf("channel(%d)", int(id))
	}
	return channelNames[id]
}

// ParseChannelID resolves a channel name as used by the HTTP and export
// layers.
func ParseChannelID(name string) (ChannelID, error) {
	for id, n := range channelNames {
		if n == name {
			return ChannelID(id), nil
		}
	}
	return 0, fmt.Errorf("unknown channel %q", name)
}

// AllChannelIDs returns every channel in display order.
func AllChannelIDs() []ChannelID {
	ids := make([]ChannelID, numChannels)
	for i := range ids {
		ids[i] = ChannelID(i)
	}
	return ids
}

// Channel holds one derived per-point scalar array. SourceData is the
// canonical row-major array fixed at import; Data is the working copy the
// display orientation operates on.
type Channel struct {
	ID         ChannelID
	SourceData []float64
	Data       []float64
}

// Reset discards the working copy and restores the imported values.
func (c *Channel) Reset() {
	c.Data = append([]float64(nil), c.SourceData...)
}

func newChannel(id ChannelID, values []float64) *Channel {
	return &Channel{
		ID:         id,
		SourceData: values,
		Data:       append([]float64(nil), values...),
	}
}

// ComputeChannels derives every channel from the corrected curves. The
// curves must be in canonical order, one per grid point. Artifact curves
// contribute NaN to the physical channels; the artifact mask and the
// force-distance topography are computed for every curve.
func ComputeChannels(curves []*ForceCurve) map[ChannelID]*Channel {
	n := len(curves)

	topography := make([]float64, n)
	fdTopography := make([]float64, n)
	zPiezoAtMax := make([]float64, n)
	stiffness := make([]float64, n)
	attractiveArea := make([]float64, n)
	rawOffset := make([]float64, n)
	rawStiffness := make([]float64, n)
	maxDeflection := make([]float64, n)
	zAttractive := make([]float64, n)
	deflectionAttractive := make([]float64, n)
	artifactMask := make([]float64, n)

	for i, curve := range curves {
		c := curve.Correction
		fdTopography[i] = c.PointOfContact
		artifactMask[i] = artifactFlag(curve.Y)

		if !c.Ok {
			topography[i] = math.NaN()
			zPiezoAtMax[i] = math.NaN()
			stiffness[i] = math.NaN()
			attractiveArea[i] = math.NaN()
			rawOffset[i] = math.NaN()
			rawStiffness[i] = math.NaN()
			maxDeflection[i] = math.NaN()
			zAttractive[i] = math.NaN()
			deflectionAttractive[i] = math.NaN()
			continue
		}

		topography[i] = c.PointOfContact
		zPiezoAtMax[i] = curve.X[len(curve.X)-1]
		_, stiffness[i] = stat.LinearRegression(curve.X, curve.Y, nil, true)
		rawOffset[i] = c.RawOffset
		rawStiffness[i] = c.RawStiffness
		maxDeflection[i] = curve.Y[len(curve.Y)-1]
		deflectionAttractive[i] = NanMin(curve.Y)

		if start, end, ok := locateAttractiveArea(curve.Y, c.ZeroCrossing); ok {
			attractiveArea[i] = TrapezoidUnit(curve.Y[start:end])
			zAttractive[i] = float64(end - start)
		} else {
			attractiveArea[i] = math.NaN()
			zAttractive[i] = math.NaN()
		}
	}

	return map[ChannelID]*Channel{
		ChannelTopography:              newChannel(ChannelTopography, topography),
		ChannelForceDistanceTopography: newChannel(ChannelForceDistanceTopography, fdTopography),
		ChannelZPiezoAtMaxDeflection:   newChannel(ChannelZPiezoAtMaxDeflection, zPiezoAtMax),
		ChannelStiffness:               newChannel(ChannelStiffness, stiffness),
		ChannelAttractiveArea:          newChannel(ChannelAttractiveArea, attractiveArea),
		ChannelRawOffset:               newChannel(ChannelRawOffset, rawOffset),
		ChannelRawStiffness:            newChannel(ChannelRawStiffness, rawStiffness),
		ChannelMaxDeflection:           newChannel(ChannelMaxDeflection, maxDeflection),
		ChannelZAttractive:             newChannel(ChannelZAttractive, zAttractive),
		ChannelDeflectionAttractive:    newChannel(ChannelDeflectionAttractive, deflectionAttractive),
		ChannelCurvesWithArtifacts:     newChannel(ChannelCurvesWithArtifacts, artifactMask),
	}
}

// locateAttractiveArea finds the attractive segment of a corrected curve:
// it starts at the last positive deflection before the point of contact and
// ends at the point of contact itself.
func locateAttractiveArea(y []float64, pointOfContact int) (start, end int, ok bool) {
	for i := pointOfContact - 1; i >= 0; i-- {
		if y[i] > 0 {
			return i, pointOfContact, true
		}
	}
	return 0, 0, false
}

// artifactFlag reports whether the deflection decreases anywhere along the
// curve. Curves with fewer than two samples carry no evidence and pass.
func artifactFlag(y []float64) float64 {
	for i := 1; i < len(y); i++ {
		if y[i] < y[i-1] {
			return 1
		}
	}
	return 0
}
