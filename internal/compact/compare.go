package compact

import (
	"math"

	"github.com/copyleftdev/gridsearch/internal/vector"
)

// Ordering is the result of a tolerance-aware componentwise comparison.
type Ordering int

const (
	Lesser       Ordering = -1
	Incomparable Ordering = 0
	Bigger       Ordering = 1
)

func (o Ordering) String() string {
	switch o {
	case Lesser:
		return "lesser"
	case Bigger:
		return "bigger"
	default:
		return "incomparable"
	}
}

// Compare orders l against r axis by axis. Axes where the coordinates differ
// by less than tol are ignored. The result is Lesser when every remaining axis
// has l[i] < r[i], Bigger when every remaining axis has l[i] > r[i], and
// Incomparable when both directions occur, when no axis remains, or when the
// operands are nil or of different dimensions.
func Compare(l, r *vector.Vector, tol float64) Ordering {
	if l == nil || r == nil || l.Dim() != r.Dim() || l.Dim() == 0 {
		return Incomparable
	}

	result := Incomparable
	for i := 0; i < l.Dim(); i++ {
		li, ri := l.At(i), r.At(i)
		if math.Abs(li-ri) < tol {
			continue
		}

		switch {
		case li > ri:
			if result == Lesser {
				return Incomparable
			}
			result = Bigger
		case li < ri:
			if result == Bigger {
				return Incomparable
			}
			result = Lesser
		}
	}

	return result
}
