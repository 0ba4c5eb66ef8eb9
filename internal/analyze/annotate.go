package analyze

import (
	"github.com/Alias1177/TrendScreener/internal/calculate"
	"github.com/Alias1177/TrendScreener/models"
)

// AnnotatedBar is a bar with its indicator values and regime label
type AnnotatedBar struct {
	models.Bar
	Symbol     string
	Type       models.SecurityType
	Indicators map[string]models.Value
	Label      Label
}

// Indicator returns the value for key, undefined when absent
func (b AnnotatedBar) Indicator(key string) models.Value {
	return b.Indicators[key]
}

// Tail holds the last two annotated bars of a symbol. Previous is nil when the
// series has a single bar.
type Tail struct {
	Last     AnnotatedBar
	Previous *AnnotatedBar
}

// Crossing compares the two retained labels
func (t Tail) Crossing() Crossing {
	if t.Previous == nil {
		return CrossingUndefined
	}
	return DetectCrossing(t.Previous.Label, t.Last.Label)
}

// PreviousLabel is undefined when there is no previous bar
func (t Tail) PreviousLabel() Label {
	if t.Previous == nil {
		return LabelUndefined
	}
	return t.Previous.Label
}

// Annotator attaches indicators and labels to the latest bars of a symbol
type Annotator struct {
	ReferenceKey string
	BandPercent  float64
}

// Annotate keeps only the last two positions of bars. It returns
// models.ErrInsufficientHistory when bars is empty.
func (a Annotator) Annotate(sec models.Security, bars []models.Bar, series calculate.Series) (Tail, error) {
	n := len(bars)
	if n == 0 {
		return Tail{}, models.ErrInsufficientHistory
	}

	tail := Tail{Last: a.at(sec, bars, series, n-1)}
	if n > 1 {
		prev := a.at(sec, bars, series, n-2)
		tail.Previous = &prev
	}
	return tail, nil
}

func (a Annotator) at(sec models.Security, bars []models.Bar, series calculate.Series, i int) AnnotatedBar {
	indicators := make(map[string]models.Value, len(series))
	for key, values := range series {
		if i < len(values) {
			indicators[key] = values[i]
		}
	}

	b := AnnotatedBar{
		Bar:        bars[i],
		Symbol:     sec.Symbol,
		Type:       sec.Type,
		Indicators: indicators,
	}
	b.Label = Classify(models.Defined(b.Close), indicators[a.ReferenceKey], a.BandPercent)
	return b
}
