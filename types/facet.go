package types

// Axis identifies one of the three directions of the decomposition grid
type Axis uint8

const (
	AxisX Axis = iota
	AxisY
	AxisZ
	NumAxes
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return "Axis(?)"
}

// Facet identifies one of the six faces of a sub-domain. Up and Down facets of
// the same axis are adjacent so that Reverse can flip the low bit.
type Facet uint8

const (
	XUp Facet = iota
	XDown
	YUp
	YDown
	ZUp
	ZDown
	NumFacets
)

var AllFacets = [NumFacets]Facet{XUp, XDown, YUp, YDown, ZUp, ZDown}

var facetNames = [NumFacets]string{"XUp", "XDown", "YUp", "YDown", "ZUp", "ZDown"}

func (f Facet) String() string {
	if f < NumFacets {
		return facetNames[f]
	}
	return "Facet(?)"
}

// Reverse returns the facet on the neighbor that faces this one (Up <-> Down)
func (f Facet) Reverse() Facet {
	return Facet((int(f)/2)*2 + ((int(f) % 2) ^ 1))
}

func (f Facet) Axis() Axis {
	return Axis(f / 2)
}

func (f Facet) IsUp() bool {
	return f%2 == 0
}

// Offset is +1 for Up facets and -1 for Down facets
func (f Facet) Offset() int {
	if f.IsUp() {
		return 1
	}
	return -1
}

// FacetOf returns the facet of an axis in the given direction
func FacetOf(a Axis, up bool) Facet {
	if up {
		return Facet(2 * a)
	}
	return Facet(2*a + 1)
}
