// Package pool provides a bounded worker pool with settle-all semantics:
// every task produces a CompletedTask carrying either its result or its
// error, so one failing branch never aborts or hides its siblings.
package pool

import "sync"

type CompletedTask[T any] struct {
	Result T
	Error  error
}

// RunInPool consumes queue with at most maxWorkers goroutines, sending one
// CompletedTask per input to completed. The completed channel is closed once
// every queued task has settled.
func RunInPool[In any, Out any](worker func(In) (Out, error), queue chan In, completed chan CompletedTask[Out], maxWorkers int) {
	workers := min(len(queue), maxWorkers)

	go func() {
		wg := sync.WaitGroup{}
		wg.Add(workers)

		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()

				for {
					next, ok := <-queue
					if !ok {
						return
					}

					res, err := worker(next)
					if err != nil {
						completed <- CompletedTask[Out]{Error: err}
					} else {
						completed <- CompletedTask[Out]{Result: res, Error: nil}
					}
				}
			}()
		}

		wg.Wait()

		close(completed)
	}()
}

// SettleAll runs worker over every input with at most maxWorkers goroutines
// and returns one CompletedTask per input, in input order.
func SettleAll[In any, Out any](worker func(In) (Out, error), inputs []In, maxWorkers int) []CompletedTask[Out] {
	type indexed struct {
		idx int
		in  In
	}

	queue := make(chan indexed, len(inputs))
	for i, in := range inputs {
		queue <- indexed{idx: i, in: in}
	}
	close(queue)

	type indexedOut struct {
		idx int
		out Out
		err error
	}

	completed := make(chan CompletedTask[indexedOut], len(inputs))
	RunInPool(func(task indexed) (indexedOut, error) {
		out, err := worker(task.in)
		// The error rides inside the result so the ordering index survives.
		return indexedOut{idx: task.idx, out: out, err: err}, nil
	}, queue, completed, maxWorkers)

	results := make([]CompletedTask[Out], len(inputs))
	for settled := range completed {
		results[settled.Result.idx] = CompletedTask[Out]{
			Result: settled.Result.out,
			Error:  settled.Result.err,
		}
	}
	return results
}
