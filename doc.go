// Package carrot provides a Go implementation of neuro-evolution over
// variable-topology neural networks.
//
// A genome is a directed, weighted, optionally gated and optionally
// recurrent node/connection graph. Genomes can be mutated and recombined by
// a NEAT-style evolutionary search, and alternatively trained by local
// gradient descent through their own activate/propagate cycle.
//
// Basic usage:
//
//	// Score a genome by its error on a dataset (lower error, higher score).
//	evaluator := carrot.SerialEvaluator(func(ctx context.Context, genome *carrot.Network) (float64, error) {
//		mse, err := genome.Test(dataset, carrot.MSE)
//		if err != nil {
//			return 0, err
//		}
//		return -mse, nil
//	})
//
//	neat, err := carrot.NewNeat(2, 1, evaluator, carrot.DefaultOptions())
//	if err != nil {
//		log.Fatalf("Error creating population: %v", err)
//	}
//
//	// Run for 100 generations.
//	for i := 0; i < 100; i++ {
//		summary, err := neat.Evolve(context.Background())
//		if err != nil {
//			log.Fatalf("Error running generation: %v", err)
//		}
//		fmt.Printf("generation %d best %.4f\n", summary.Generation, summary.Best)
//	}
package carrot
