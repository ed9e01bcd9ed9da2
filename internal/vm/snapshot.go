package vm

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"klang/internal/heap"
)

const snapshotSchemaVersion uint16 = 1

// Snapshot is a serialisable picture of a runtime's default heap.
type Snapshot struct {
	Schema uint16          `msgpack:"schema"`
	Stats  Stats           `msgpack:"stats"`
	Values []SnapshotValue `msgpack:"values"`
}

// SnapshotValue describes one value block.
type SnapshotValue struct {
	Ptr   uint64 `msgpack:"ptr"`
	Type  string `msgpack:"type"`
	Width int    `msgpack:"width"`
	Size  uint32 `msgpack:"size"`
	Refs  uint32 `msgpack:"refs"`
	Text  string `msgpack:"text"`
}

// Snapshot captures every value block of the default heap in address order.
func (rt *Runtime) Snapshot() Snapshot {
	snap := Snapshot{Schema: snapshotSchemaVersion, Stats: rt.Stats()}
	rt.walkValues(rt.heap, func(v Value, hdr heap.Header) {
		snap.Values = append(snap.Values, SnapshotValue{
			Ptr:   uint64(v.ptr),
			Type:  v.typ.String(),
			Width: rt.Width(v),
			Size:  hdr.Size,
			Refs:  hdr.Refs,
			Text:  rt.ToText(v),
		})
	})
	return snap
}

// WriteSnapshot encodes a snapshot of rt as msgpack.
func (rt *Runtime) WriteSnapshot(w io.Writer) error {
	snap := rt.Snapshot()
	return msgpack.NewEncoder(w).Encode(&snap)
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := msgpack.NewDecoder(r).Decode(&snap); err != nil {
		return nil, err
	}
	if snap.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("vm: snapshot schema %d, want %d", snap.Schema, snapshotSchemaVersion)
	}
	return &snap, nil
}
