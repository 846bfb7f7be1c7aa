/*
conveyor allows to run multi-stage pipelines over pools of goroutines, with an explicit drain protocol for shutdown.

Each stage is a fixed-size pool of workers sharing a closeable input queue and an output queue. Items flow left to
right through the stages; during shutdown, control flows right to left: the coordinator closes a stage's input queue
once per worker (each stop marker terminates exactly one worker), waits for the queue to be fully drained (every item
popped and acknowledged, not merely dequeued), then waits for the workers themselves to exit before moving to the next
stage. The two-level join matters: a worker may still be mid-push to the next queue after acknowledging its input, so
waiting on the workers guarantees the downstream side effect has landed before the stage reports stopped.

Queues carry a pending count: items pushed but not yet acknowledged, stop markers included. Join blocks until that
count reaches zero. Queues can be bounded, in which case Push blocks when the buffer is full; bounding a queue is the
way to keep memory flat when stages differ in speed.

Pool sizing follows the usual trade: a stage whose transformation mostly waits can take a large pool, a CPU-bound
stage is better sized to the core count. Stages are tuned independently, so a slower stage simply gets more workers.

Ordering: within one queue items are FIFO, but with several workers on a stage the assignment of items to workers
races, so arrival order into the next queue is not deterministic. If strict ordering is required, tag the inputs with
Index, lift the stage functions with MapIndexed and re-sort the output with Reorder.
*/

package conveyor
