package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"klang/internal/vm"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Evaluate the reference expression scenario and report heap usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, cleanup, err := prepare(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		idx := e.timer.Begin("runtime")
		rt, err := e.newRuntime()
		e.timer.End(idx, "")
		if err != nil {
			return err
		}
		defer rt.Close()

		idx = e.timer.Begin("evaluate")
		sc, err := evaluateScenario(rt)
		e.timer.End(idx, "")
		if err != nil {
			return err
		}
		sc.print(cmd.OutOrStdout())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "heap used: %d bytes\n", rt.HeapUsed())

		idx = e.timer.Begin("release")
		sc.release()
		reclaimed := rt.Collect()
		e.timer.End(idx, fmt.Sprintf("reclaimed %d", reclaimed))
		fmt.Fprintf(out, "after release and collect: %d bytes (%d blocks reclaimed)\n", rt.HeapUsed(), reclaimed)
		return nil
	},
}

type step struct {
	expr   string
	result vm.Ref
}

// scenario holds every intermediate of the reference expression so the
// heap commands can inspect them before release.
type scenario struct {
	rt    *vm.Runtime
	steps []step
	held  []vm.Ref
	stack *vm.Stack
}

// scenarioStackSlots is the register stack capacity of the scenario.
const scenarioStackSlots = 32

// evaluateScenario computes, for a = 15 and b = -7:
// a + b, its text and first character, 8 == a + b, a > b, !(a > b),
// !!(a > b) and ++((a + b) * 8). It then pushes 50 and a onto a
// register stack.
func evaluateScenario(rt *vm.Runtime) (sc *scenario, err error) {
	sc = &scenario{rt: rt}
	defer func() {
		if err != nil {
			sc.release()
			sc = nil
		}
	}()
	keep := func(r vm.Ref, err error) (vm.Ref, error) {
		if err == nil {
			sc.held = append(sc.held, r)
		}
		return r, err
	}
	record := func(expr string) func(vm.Ref, error) (vm.Ref, error) {
		return func(r vm.Ref, err error) (vm.Ref, error) {
			r, err = keep(r, err)
			if err != nil {
				return r, fmt.Errorf("%s: %w", expr, err)
			}
			sc.steps = append(sc.steps, step{expr: expr, result: r})
			return r, nil
		}
	}

	a, err := record("a")(rt.Int32(15))
	if err != nil {
		return sc, err
	}
	b, err := record("b")(rt.Int32(-7))
	if err != nil {
		return sc, err
	}
	sum, err := record("a + b")(a.Plus(b))
	if err != nil {
		return sc, err
	}
	str, err := record("string(a + b)")(rt.Text(sum.String()))
	if err != nil {
		return sc, err
	}
	acc, err := str.At(0)
	if err != nil {
		return sc, err
	}
	first, err := acc.Get()
	acc.Release()
	if _, err = record("string(a + b)[0]")(first, err); err != nil {
		return sc, err
	}
	eight, err := keep(rt.Int32(8))
	if err != nil {
		return sc, err
	}
	if _, err = record("8 == a + b")(eight.Equals(sum)); err != nil {
		return sc, err
	}
	gt, err := record("a > b")(a.Greater(b))
	if err != nil {
		return sc, err
	}
	notGt, err := record("!(a > b)")(gt.Not())
	if err != nil {
		return sc, err
	}
	if _, err = record("!!(a > b)")(notGt.Not()); err != nil {
		return sc, err
	}
	prod, err := keep(sum.Multiply(eight))
	if err != nil {
		return sc, err
	}
	if _, err = record("++((a + b) * 8)")(prod.Increment()); err != nil {
		return sc, err
	}

	sc.stack = vm.NewStack(rt, scenarioStackSlots)
	fifty, err := keep(rt.Int32(50))
	if err != nil {
		return sc, err
	}
	for _, r := range []vm.Ref{fifty, a} {
		if !sc.stack.Push(r) {
			return sc, fmt.Errorf("register stack full at %d slots", sc.stack.Capacity())
		}
	}
	return sc, nil
}

func (sc *scenario) print(out io.Writer) {
	for _, s := range sc.steps {
		fmt.Fprintf(out, "%-18s = %s\n", s.expr, headerColor.Sprint(describe(s.result)))
	}
	if sc.stack == nil {
		return
	}
	fmt.Fprintf(out, "stack %d/%d slots:", sc.stack.Size(), sc.stack.Capacity())
	for i := range sc.stack.Size() {
		fmt.Fprintf(out, " %s", describeValue(sc.rt, sc.stack.Get(i)))
	}
	fmt.Fprintln(out)
}

// release drops every handle the scenario holds.
func (sc *scenario) release() {
	if sc == nil {
		return
	}
	if sc.stack != nil {
		sc.stack.Release()
		sc.stack = nil
	}
	for i := range sc.held {
		sc.held[i].Release()
	}
	sc.held = nil
	sc.steps = nil
}

func describe(r vm.Ref) string { return describeValue(r.Runtime(), r.Value()) }

// describeValue renders v as type(text), with the bit width for numbers.
func describeValue(rt *vm.Runtime, v vm.Value) string {
	name := v.Type().String()
	if v.Type() == vm.TypeInteger || v.Type() == vm.TypeFloat {
		name = fmt.Sprintf("%s/%d", name, rt.Width(v)*8)
	}
	return fmt.Sprintf("%s(%s)", name, rt.ToText(v))
}
