// Package worker drains the formflow submission outbox.
//
// A committed wizard that uses outbox.Handler as its done handler only
// records the cleaned data on a queue. Workers consume those submissions
// and hand each one to a Processor, which typically forwards it to a
// database, a CRM or an e-mail service.
//
// # Retries
//
// A failed submission is put back on the queue with its attempt counter
// incremented and NotBefore pushed into the future according to the
// worker's RetryPolicy. Once MaxAttempts is reached the submission is
// dropped and the error is returned from ProcessOne.
//
//	w := worker.NewWithConfig(proc, queue, worker.Config{
//		Retry: worker.Retry(5).
//			WithExponentialBackoff(time.Second, 2, time.Minute).
//			Policy(),
//	})
//
// # Backends
//
// Workers only depend on the outbox.Queue interface, so the in-memory,
// SQLite and Redis queues are interchangeable. Several workers can share one
// SQLite or Redis queue to scale processing.
//
// # Lifecycle
//
// Run loops over ProcessOne until its context is cancelled. Processing
// errors are logged and do not stop the loop.
package worker
