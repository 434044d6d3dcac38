package carrot

import (
	"context"
	"sync"
)

// Evaluator assigns a fitness score to every genome of a population. Distinct
// genomes have no ordering dependency, so an implementation is free to fan
// the population out to workers, as long as every genome carries a score when
// Evaluate returns. The evaluator must not mutate the population beyond
// setting scores.
type Evaluator interface {
	Evaluate(ctx context.Context, population []*Network) error
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(ctx context.Context, population []*Network) error

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, population []*Network) error {
	return f(ctx, population)
}

// GenomeFitness scores one genome; higher is better.
type GenomeFitness func(ctx context.Context, genome *Network) (float64, error)

// SerialEvaluator scores genomes one at a time, in order.
func SerialEvaluator(fitness GenomeFitness) Evaluator {
	return EvaluatorFunc(func(ctx context.Context, population []*Network) error {
		for _, genome := range population {
			score, err := fitness(ctx, genome)
			if err != nil {
				return err
			}
			genome.SetScore(score)
		}
		return nil
	})
}

// ParallelEvaluator fans the population out to the given number of workers
// and waits for all scores before returning. Genome activation stays
// single-threaded per instance; only distinct genomes are evaluated
// concurrently.
func ParallelEvaluator(workers int, fitness GenomeFitness) Evaluator {
	if workers < 1 {
		workers = 1
	}
	return EvaluatorFunc(func(ctx context.Context, population []*Network) error {
		jobs := make(chan *Network)
		var wg sync.WaitGroup

		var mu sync.Mutex
		var firstErr error

		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for genome := range jobs {
					score, err := fitness(ctx, genome)
					if err != nil {
						mu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						mu.Unlock()
						continue
					}
					genome.SetScore(score)
				}
			}()
		}

		for _, genome := range population {
			jobs <- genome
		}
		close(jobs)
		wg.Wait()
		return firstErr
	})
}
