package analyze

import (
	"github.com/Alias1177/TrendScreener/models"
)

// Label is the position of a price relative to its reference indicator
type Label int

const (
	LabelUndefined Label = iota
	LabelBelow
	LabelAbove
)

func (l Label) String() string {
	switch l {
	case LabelAbove:
		return "Above"
	case LabelBelow:
		return "Below"
	default:
		return "Undefined"
	}
}

// Classify labels value against reference. A value exactly on the band edge
// is Above. The label is undefined when either side is undefined.
func Classify(value, reference models.Value, bandPercent float64) Label {
	v, ok := value.Get()
	if !ok {
		return LabelUndefined
	}
	ref, ok := reference.Get()
	if !ok {
		return LabelUndefined
	}

	if v >= (1+bandPercent/100)*ref {
		return LabelAbove
	}
	return LabelBelow
}

// Crossing is the tri-state result of comparing two consecutive labels
type Crossing int

const (
	CrossingUndefined Crossing = iota
	NotCrossed
	Crossed
)

func (c Crossing) String() string {
	switch c {
	case Crossed:
		return "true"
	case NotCrossed:
		return "false"
	default:
		return ""
	}
}

// DetectCrossing compares the label one bar back with the latest one
func DetectCrossing(previous, last Label) Crossing {
	if previous == LabelUndefined || last == LabelUndefined {
		return CrossingUndefined
	}
	if previous != last {
		return Crossed
	}
	return NotCrossed
}
