package main

import (
	"klang/internal/vm"
)

// newRuntime creates a runtime sized by [heap] and traced by the command
// tracer.
func (e *env) newRuntime() (*vm.Runtime, error) {
	return vm.New(vm.WithHeapSize(e.cfg.Heap.Size), vm.WithTracer(e.tracer))
}
