package vm

import (
	"strconv"

	"fortio.org/safecast"
	"github.com/mattn/go-runewidth"
)

// text decodes a string value.
func (rt *Runtime) text(v Value) string {
	return string(readRunes(rt.payload(v)))
}

// RuneLen returns the number of code points of a string value, or 0 for
// other types.
func (rt *Runtime) RuneLen(v Value) int {
	v = v.norm()
	if v.typ != TypeString {
		return 0
	}
	return runeCount(rt.payload(v))
}

// concatStrings appends the text of right to the string left.
func (rt *Runtime) concatStrings(left, right Value) (Value, error) {
	lhs := readRunes(rt.payload(left))
	var rhs []rune
	if right.typ == TypeString {
		rhs = readRunes(rt.payload(right))
	} else {
		rhs = []rune(rt.ToText(right))
	}
	out := make([]rune, 0, len(lhs)+len(rhs))
	out = append(out, lhs...)
	out = append(out, rhs...)
	return rt.newRunes(out)
}

// stringIndex returns the one-character string at index, or Undefined when
// the index is out of range.
func (rt *Runtime) stringIndex(s, index Value) (Value, error) {
	buf := rt.payload(s)
	i, err := safecast.Conv[int](rt.ToInt64(index))
	if err != nil || i < 0 || i >= runeCount(buf) {
		return Undefined, nil
	}
	return rt.newRunes([]rune{runeAt(buf, i)})
}

// displayText renders v for dumps: strings are quoted and everything is cut
// to width terminal columns.
func (rt *Runtime) displayText(v Value, width int) string {
	s := rt.ToText(v)
	if v.Type() == TypeString {
		s = strconv.Quote(s)
	}
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
