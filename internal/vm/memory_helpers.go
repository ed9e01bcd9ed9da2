package vm

import (
	"encoding/binary"
	"math"
)

// Payload layout of every value block:
//
//	[0]     type tag
//	[1]     width of a numeric datum (4 or 8), 1 for booleans
//	[2:8]   reserved
//	[8:]    datum; strings store a rune count followed by UTF-32LE code points
const (
	payloadTag   = 0
	payloadWidth = 1
	payloadData  = 8

	runeSize = 4
)

func datum(buf []byte) []byte { return buf[payloadData:] }

func putInt32(buf []byte, n int32) {
	binary.LittleEndian.PutUint32(datum(buf), uint32(n)) //nolint:gosec // G115: bit pattern
}

func putInt64(buf []byte, n int64) {
	binary.LittleEndian.PutUint64(datum(buf), asUint64(n))
}

func putFloat32(buf []byte, f float32) {
	binary.LittleEndian.PutUint32(datum(buf), math.Float32bits(f))
}

func putFloat64(buf []byte, f float64) {
	binary.LittleEndian.PutUint64(datum(buf), math.Float64bits(f))
}

func readInt(buf []byte) int64 {
	if buf[payloadWidth] == 4 {
		return int64(int32(binary.LittleEndian.Uint32(datum(buf)))) //nolint:gosec // G115: bit pattern
	}
	return asInt64(binary.LittleEndian.Uint64(datum(buf)))
}

func readFloat(buf []byte) float64 {
	if buf[payloadWidth] == 4 {
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(datum(buf))))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(datum(buf)))
}

func readBool(buf []byte) bool { return datum(buf)[0] != 0 }

func runeCount(buf []byte) int {
	return int(binary.LittleEndian.Uint32(datum(buf)))
}

func runeAt(buf []byte, i int) rune {
	off := runeSize + i*runeSize
	return rune(binary.LittleEndian.Uint32(datum(buf)[off:])) //nolint:gosec // G115: code points fit
}

func putRunes(buf []byte, rs []rune) {
	d := datum(buf)
	binary.LittleEndian.PutUint32(d, uint32(len(rs))) //nolint:gosec // G115: length checked by caller
	for i, r := range rs {
		binary.LittleEndian.PutUint32(d[runeSize+i*runeSize:], uint32(r)) //nolint:gosec // G115: code point
	}
}

func readRunes(buf []byte) []rune {
	n := runeCount(buf)
	rs := make([]rune, n)
	for i := range rs {
		rs[i] = runeAt(buf, i)
	}
	return rs
}
