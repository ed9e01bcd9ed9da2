package vm

import (
	"fmt"
	"sort"
	"strings"

	"klang/internal/heap"
)

const dumpReprWidth = 40

type heapDumpRecord struct {
	typeName string
	width    int
	size     uint32
	refs     uint32
	repr     string
	line     string
}

// HeapDump lists the values of the default heap, and of the static heap when
// withStatic is set, one line per distinct value. Identical lines collapse
// into one with a count.
func (rt *Runtime) HeapDump(withStatic bool) string {
	records := make([]heapDumpRecord, 0)
	collect := func(h *heap.Heap, label string) {
		rt.walkValues(h, func(v Value, hdr heap.Header) {
			records = append(records, rt.heapDumpRecord(v, hdr, label))
		})
	}
	collect(rt.heap, "")
	if withStatic {
		collect(staticHeap, "static ")
	}
	if len(records) == 0 {
		return ""
	}

	sort.Slice(records, func(i, j int) bool {
		a := records[i]
		b := records[j]
		if a.typeName != b.typeName {
			return a.typeName < b.typeName
		}
		if a.width != b.width {
			return a.width < b.width
		}
		if a.size != b.size {
			return a.size < b.size
		}
		if a.refs != b.refs {
			return a.refs < b.refs
		}
		if a.repr != b.repr {
			return a.repr < b.repr
		}
		return a.line < b.line
	})

	var sb strings.Builder
	for i := 0; i < len(records); {
		line := records[i].line
		count := 1
		for j := i + 1; j < len(records); j++ {
			if records[j].line != line {
				break
			}
			count++
		}
		sb.WriteString(line)
		if count > 1 {
			sb.WriteString(fmt.Sprintf(" count=%d", count))
		}
		sb.WriteString("\n")
		i += count
	}
	return sb.String()
}

func (rt *Runtime) heapDumpRecord(v Value, hdr heap.Header, label string) heapDumpRecord {
	rec := heapDumpRecord{
		typeName: v.typ.String(),
		size:     hdr.Size,
		refs:     hdr.Refs,
		repr:     rt.displayText(v, dumpReprWidth),
	}
	if v.typ == TypeInteger || v.typ == TypeFloat {
		rec.width = rt.Width(v)
	}
	var sb strings.Builder
	sb.WriteString(label)
	sb.WriteString(rec.typeName)
	if rec.width != 0 {
		fmt.Fprintf(&sb, "/%d", rec.width*8)
	}
	fmt.Fprintf(&sb, " size=%d rc=%d %s", rec.size, rec.refs, rec.repr)
	rec.line = sb.String()
	return rec
}
