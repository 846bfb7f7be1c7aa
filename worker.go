package conveyor

// Transform defines a stage function: payload in, payload out, no shared mutable state. It may block
// to simulate or perform slow work, there is no timeout around it.
type Transform[In, Out any] func(In) Out

// worker is the unit of concurrency inside a Pool. It loops on the shared input queue until it
// consumes a stop marker.
type worker[In, Out any] struct {
	in  *Queue[In]
	out *Queue[Out]
	fn  Transform[In, Out]
}

// run pops, transforms and pushes until a stop marker is consumed. The input element is acknowledged
// only after the result has been pushed downstream, so a Join on the input queue observes fully
// processed items, not merely dequeued ones.
func (w worker[In, Out]) run() {
	for {
		item, stop := w.in.Pop()
		if stop {
			w.in.Ack()
			return
		}
		w.out.Push(w.fn(item))
		w.in.Ack()
	}
}
