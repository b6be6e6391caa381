package batch

import (
	"runtime"
	"sync"
)

// maxWorkers caps the default pool size.
const maxWorkers = 32

// DefaultWorkers returns the pool size used when none is configured.
func DefaultWorkers() int {
	return min(runtime.NumCPU(), maxWorkers)
}

// pool distributes jobs across a fixed set of goroutines and collects their
// results in completion order.
type pool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// newPool creates a pool. A non-positive numWorkers uses DefaultWorkers, and
// the pool never starts more workers than there are jobs.
func newPool[Job any, Result any](numWorkers, numJobs int) *pool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers()
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &pool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// start launches the workers; fn is called once per job.
func (p *pool[Job, Result]) start(fn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- fn(job)
			}
		}()
	}
}

func (p *pool[Job, Result]) submit(job Job) {
	p.jobs <- job
}

// close stops accepting jobs. The results channel is closed once every
// worker has finished.
func (p *pool[Job, Result]) close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *pool[Job, Result]) resultsChan() <-chan Result {
	return p.results
}
