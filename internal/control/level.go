package control

import (
	"strconv"
	"strings"
)

// Level is an ordered tuple identifying a synchronization barrier. A single
// integer is the common case; longer tuples nest groups inside a level.
type Level []int

func L(parts ...int) Level {
	return Level(append([]int(nil), parts...))
}

// Compare orders levels lexicographically; a strict prefix sorts first.
func (l Level) Compare(other Level) int {
	for i := 0; i < len(l) && i < len(other); i++ {
		switch {
		case l[i] < other[i]:
			return -1
		case l[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(l) < len(other):
		return -1
	case len(l) > len(other):
		return 1
	}
	return 0
}

func (l Level) Equal(other Level) bool { return l.Compare(other) == 0 }

func (l Level) String() string {
	if len(l) == 0 {
		return "0"
	}
	if len(l) == 1 {
		return strconv.Itoa(l[0])
	}
	parts := make([]string, len(l))
	for i, v := range l {
		parts[i] = strconv.Itoa(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (l Level) normalize() Level {
	if len(l) == 0 {
		return Level{0}
	}
	return L(l...)
}
