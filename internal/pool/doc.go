// Package pool runs independent tasks on a bounded number of goroutines.
//
// A [Pool] of size one or less runs tasks sequentially on the calling
// goroutine. Larger pools use an errgroup with a concurrency limit. In both
// modes the first error wins: tasks that have not started yet are skipped,
// tasks already running are waited for, and Run returns only once nothing
// is in flight.
package pool
