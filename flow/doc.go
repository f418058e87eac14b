/*
Package flow provides a small framework for composing segmented, batched,
parallel, and asynchronous processing steps.

# Processor

Processor is a function type that implements the Run method Batch and
Parallel both call against; it's the building block the rest of the
package is written in terms of:

	uppercase := Processor[string, string](func(ctx context.Context, input string) (string, error) {
	    return strings.ToUpper(input), nil
	})

# Batch

Batch divides an input into segments, runs a processor over each segment
(sequentially, or concurrently up to a limit), and aggregates the results:

	batch := (&flow.Batch[[]int, int, int, int]{}).
	    WithProcessor(squareProcessor).
	    WithSegmenter(func(ctx context.Context, input []int) ([]int, error) {
	        return input, nil
	    }).
	    WithAggregator(func(ctx context.Context, results []int) (int, error) {
	        sum := 0
	        for _, r := range results {
	            sum += r
	        }
	        return sum, nil
	    }).
	    WithConcurrencyLimit(10)

	sum, err := batch.Run(ctx, []int{1, 2, 3})

orchestrator.Pool uses Batch to fan a job batch out across a worker pool
and collect outcomes (§4.L).

# Parallel

Parallel runs a set of processors concurrently against the same input and
aggregates whichever subset of results satisfies the wait/success policy:

	parallel := (&flow.Parallel[string, []string]{}).
	    AddProcessors(fetchA, fetchB, fetchC).
	    WithAggregator(combine).
	    WithWaitCount(2).
	    WithRequiredSuccesses(1).
	    WithContinueOnError()

	combined, err := parallel.Run(ctx, "query")

legacyquery.Executor uses Parallel to fan the named query catalog out
against the legacy source concurrently instead of querying it one name at
a time (§4.D).

# AsyncResult

AsyncResult is a promise-like value for work whose result is produced by
a background goroutine and consumed later, with context cancellation and
Fork for dependent follow-up results. orchestrator.Orchestrator uses it
to let administrator notifications, sent when a job fails with critical
severity, complete without blocking the job that triggered them.

# Error Handling

Run accepts and honors context cancellation throughout: Batch and
Parallel both check ctx before doing segment or aggregation work, and
propagate context errors rather than continuing once the caller has
given up.

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := batch.Run(ctx, input)
	if errors.Is(err, context.DeadlineExceeded) {
	    // handle timeout
	}

# Thread Safety

Processor values are safe for concurrent use once constructed, provided
the underlying function has no unsynchronized shared state of its own.
*/
package flow
