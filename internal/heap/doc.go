// Package heap implements the fixed-size arena that backs every Klang value.
//
// A Heap is one contiguous region carved into blocks. Every block starts with
// a 24-byte header (next, prev, size, refs, gen, flags) followed by its
// payload; blocks tile the region in address order. Free blocks are threaded
// onto an intrusive free list stored in their own payload, and neighbouring
// free blocks are merged as soon as one of them is released.
//
// Handles (Ptr) carry the payload offset and the generation of the block they
// were issued for. Releasing a block retires its generation, so a stale handle
// is reported instead of silently aliasing whatever is allocated there next.
// A side bitmap marks which offsets currently begin a block, so a header that
// was merged into a neighbour is never read back through an old handle.
//
// Reclamation is deferred: DecRef never frees. Collect walks the block list
// once and reclaims every live block whose refcount has dropped to zero.
// There is no cycle detection.
//
// A Heap is not safe for concurrent use.
package heap
