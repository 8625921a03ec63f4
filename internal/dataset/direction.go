package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction is the trend label of a candle. The ordinal values are part of
// the prompt contract and must not change.
type Direction int

const (
	Long    Direction = 0
	Short   Direction = 1
	Neutral Direction = 2
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// ParseDirection accepts LONG, SHORT or NEUTRAL in any case, or the ordinals
// 0, 1 and 2. Blank input is NEUTRAL.
func ParseDirection(s string) (Direction, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch v {
	case "", "NAN", "NONE", "NULL", "NEUTRAL":
		return Neutral, nil
	case "LONG":
		return Long, nil
	case "SHORT":
		return Short, nil
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		switch f {
		case 0:
			return Long, nil
		case 1:
			return Short, nil
		case 2:
			return Neutral, nil
		}
	}
	return Neutral, fmt.Errorf("unknown direction %q", s)
}
