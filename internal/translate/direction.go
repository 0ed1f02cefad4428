package translate

import "fmt"

// Direction selects which way a translation runs.
type Direction string

const (
	DirectionEnJa Direction = "en-ja"
	DirectionJaEn Direction = "ja-en"
)

// Directions lists the supported directions in a stable order.
func Directions() []Direction {
	return []Direction{DirectionEnJa, DirectionJaEn}
}

// ParseDirection accepts the wire form of a direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case DirectionEnJa:
		return DirectionEnJa, nil
	case DirectionJaEn:
		return DirectionJaEn, nil
	default:
		return "", newInvalidInputError(fmt.Sprintf("unknown direction %q (want %q or %q)", s, DirectionEnJa, DirectionJaEn))
	}
}

func (d Direction) String() string { return string(d) }
