package carrot

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// SelectionKind enumerates the parent selection strategies.
type SelectionKind int

const (
	// PowerSelection sorts by score and draws index
	// floor(random^power * popsize), biasing toward the front.
	PowerSelection SelectionKind = iota
	// FitnessProportionateSelection is a roulette wheel over scores shifted
	// by the population minimum, so negative scores stay selectable.
	FitnessProportionateSelection
	// TournamentSelection samples Size individuals and picks down the sorted
	// tournament with probability Probability per slot.
	TournamentSelection
)

// String returns the strategy's configuration name.
func (k SelectionKind) String() string {
	switch k {
	case PowerSelection:
		return "POWER"
	case FitnessProportionateSelection:
		return "FITNESS_PROPORTIONATE"
	case TournamentSelection:
		return "TOURNAMENT"
	}
	return "SELECTION(?)"
}

// Selection is a parent selection strategy with its parameters.
type Selection struct {
	Kind        SelectionKind
	Power       float64 // PowerSelection exponent
	Size        int     // TournamentSelection sample size
	Probability float64 // TournamentSelection pick probability
}

// SelectionByName resolves a configuration name to a selection strategy with
// default parameters.
func SelectionByName(name string) (Selection, error) {
	switch name {
	case "POWER":
		return Selection{Kind: PowerSelection, Power: 4}, nil
	case "FITNESS_PROPORTIONATE":
		return Selection{Kind: FitnessProportionateSelection}, nil
	case "TOURNAMENT":
		return Selection{Kind: TournamentSelection, Size: 5, Probability: 0.5}, nil
	}
	return Selection{}, fmt.Errorf("unknown selection strategy: %s", name)
}

// Options configures a Neat population manager. DefaultOptions supplies the
// defaults; zero values on a caller-built Options are filled in the same way
// by NewNeat.
type Options struct {
	PopSize        int
	Elitism        int
	Provenance     int
	MutationRate   float64
	MutationAmount int

	Mutations []Mutation
	Selection Selection

	// Growth penalizes structural size: each hidden node, connection and
	// gate beyond the initial frame subtracts Growth from the score during
	// evaluation.
	Growth float64

	MaxNodes int
	MaxConns int
	MaxGates int

	// Equal treats every parent pair as equally fit during crossover.
	Equal bool

	// Clear resets each genome's recurrent state before evaluation, so
	// genomes are scored from identical starting conditions.
	Clear bool

	// EfficientMutation re-samples among the allowed operators until one is
	// possible, instead of giving up after a single infeasible draw.
	EfficientMutation bool

	// Warnings enables warning-level output for skipped operations.
	Warnings bool

	// Filter optionally marks genomes for replacement after evaluation;
	// Adjust must then produce the replacement genome.
	Filter func(genome *Network) bool
	Adjust func(genome *Network) *Network

	// Template, when set, seeds the population and provenance injection.
	Template *Network

	// Seed makes the run reproducible when non-zero.
	Seed int64
}

// DefaultOptions returns the options every run starts from.
func DefaultOptions() Options {
	return Options{
		PopSize:        50,
		MutationRate:   0.3,
		MutationAmount: 1,
		Mutations:      FeedforwardMutations(),
		Selection:      Selection{Kind: PowerSelection, Power: 4},
		MaxNodes:       math.MaxInt32,
		MaxConns:       math.MaxInt32,
		MaxGates:       math.MaxInt32,
	}
}

// Summary reports one finished generation.
type Summary struct {
	Generation int
	Fittest    *Network
	Best       float64
	Mean       float64
	Stdev      float64
}

// Neat runs generational evolution over a population of network genomes. The
// manager owns the population exclusively; the injected evaluator only writes
// scores.
type Neat struct {
	Options

	Generation int
	Population []*Network

	template  *Network
	evaluator Evaluator
	rng       *rand.Rand
}

// NewNeat creates a population manager for networks of the given sizes. The
// population is seeded with popsize clones of the template (a freshly
// constructed dense network unless Options.Template overrides it).
func NewNeat(input, output int, evaluator Evaluator, opts Options) (*Neat, error) {
	if evaluator == nil {
		return nil, fmt.Errorf("%w: evaluator is required", ErrInvalidArgument)
	}

	def := DefaultOptions()
	if opts.PopSize == 0 {
		opts.PopSize = def.PopSize
	}
	if opts.MutationRate == 0 {
		opts.MutationRate = def.MutationRate
	}
	if opts.MutationAmount == 0 {
		opts.MutationAmount = def.MutationAmount
	}
	if len(opts.Mutations) == 0 {
		opts.Mutations = def.Mutations
	}
	if opts.Selection.Kind == PowerSelection && opts.Selection.Power == 0 {
		opts.Selection.Power = def.Selection.Power
	}
	if opts.MaxNodes == 0 {
		opts.MaxNodes = def.MaxNodes
	}
	if opts.MaxConns == 0 {
		opts.MaxConns = def.MaxConns
	}
	if opts.MaxGates == 0 {
		opts.MaxGates = def.MaxGates
	}

	if opts.PopSize <= 0 {
		return nil, fmt.Errorf("%w: popsize must be positive", ErrInvalidArgument)
	}
	if opts.Elitism+opts.Provenance > opts.PopSize {
		return nil, fmt.Errorf("%w: elitism (%d) + provenance (%d) exceeds popsize (%d)",
			ErrInvalidArgument, opts.Elitism, opts.Provenance, opts.PopSize)
	}
	if opts.Selection.Kind == TournamentSelection && opts.Selection.Size > opts.PopSize {
		return nil, fmt.Errorf("%w: tournament size (%d) exceeds popsize (%d)",
			ErrInvalidArgument, opts.Selection.Size, opts.PopSize)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	template := opts.Template
	if template == nil {
		var err error
		template, err = NewNetworkRand(input, output, rng)
		if err != nil {
			return nil, err
		}
	} else if template.Input != input || template.Output != output {
		return nil, fmt.Errorf("%w: template is %dx%d, manager expects %dx%d",
			ErrSizeMismatch, template.Input, template.Output, input, output)
	}
	template.Warnings = opts.Warnings

	n := &Neat{
		Options:   opts,
		template:  template,
		evaluator: evaluator,
		rng:       rng,
	}
	n.Population = make([]*Network, opts.PopSize)
	for i := range n.Population {
		genome := template.Clone()
		genome.Score = nil
		n.Population[i] = genome
	}
	return n, nil
}

// Evolve runs one full generation: evaluate, filter, select elites, inject
// provenance, breed, mutate, re-evaluate. It returns a summary carrying a
// clone of the generation's fittest genome. The population is replaced
// wholesale; no generation starts before the previous one has fully bred.
func (n *Neat) Evolve(ctx context.Context) (*Summary, error) {
	if n.Population[len(n.Population)-1].Score == nil {
		if err := n.Evaluate(ctx); err != nil {
			return nil, err
		}
	}
	n.Sort()

	if n.Filter != nil {
		for i, genome := range n.Population {
			if !n.Filter(genome) {
				continue
			}
			if n.Adjust == nil {
				return nil, fmt.Errorf("%w: filter is set without an adjuster", ErrInvalidCallback)
			}
			adjusted := n.Adjust(genome)
			if adjusted == nil {
				return nil, fmt.Errorf("%w: adjuster returned no genome", ErrInvalidCallback)
			}
			n.Population[i] = adjusted
		}
		n.Sort()
	}

	elitists := make([]*Network, n.Elitism)
	for i := range elitists {
		elitists[i] = n.Population[i].Clone()
	}

	next := make([]*Network, 0, n.PopSize)
	for i := 0; i < n.Provenance; i++ {
		genome := n.template.Clone()
		genome.Score = nil
		next = append(next, genome)
	}
	for len(next) < n.PopSize-n.Elitism {
		offspring, err := n.getOffspring()
		if err != nil {
			return nil, err
		}
		next = append(next, offspring)
	}

	n.Population = next
	n.Mutate()
	n.Population = append(n.Population, elitists...)

	if err := n.Evaluate(ctx); err != nil {
		return nil, err
	}
	n.Sort()

	scores := n.scores()
	summary := &Summary{
		Generation: n.Generation,
		Fittest:    n.Population[0].Clone(),
		Best:       scores[0],
		Mean:       stat.Mean(scores, nil),
		Stdev:      stat.StdDev(scores, nil),
	}

	for _, genome := range n.Population {
		genome.Score = nil
	}
	n.Generation++
	return summary, nil
}

// Evaluate scores the whole population through the injected evaluator. NaN
// scores are normalized to negative infinity, and the growth penalty is
// applied, so sorting stays total-ordered.
func (n *Neat) Evaluate(ctx context.Context) error {
	if n.Clear {
		for _, genome := range n.Population {
			genome.Clear()
		}
	}
	if err := n.evaluator.Evaluate(ctx, n.Population); err != nil {
		return fmt.Errorf("fitness evaluation failed: %w", err)
	}
	for _, genome := range n.Population {
		if genome.Score == nil {
			return fmt.Errorf("%w: evaluator left a genome unscored", ErrInvalidCallback)
		}
		score := *genome.Score
		if math.IsNaN(score) {
			score = math.Inf(-1)
		}
		if n.Growth != 0 {
			score -= n.Growth * float64(len(genome.Nodes)-genome.Input-genome.Output+
				len(genome.Connections)+len(genome.Gates))
		}
		genome.Score = &score
	}
	return nil
}

// Sort orders the population by score, best first.
func (n *Neat) Sort() {
	sort.SliceStable(n.Population, func(i, j int) bool {
		return scoreOf(n.Population[i]) > scoreOf(n.Population[j])
	})
}

// GetParent draws one parent from the population using the configured
// selection strategy. The result is always a member of the current
// population.
func (n *Neat) GetParent() *Network {
	switch n.Selection.Kind {
	case PowerSelection:
		// Assumes the population is sorted best-first.
		idx := int(math.Pow(n.rng.Float64(), n.Selection.Power) * float64(len(n.Population)))
		if idx >= len(n.Population) {
			idx = len(n.Population) - 1
		}
		return n.Population[idx]

	case FitnessProportionateSelection:
		totalFitness := 0.0
		minFitness := 0.0
		for _, genome := range n.Population {
			score := scoreOf(genome)
			if score < minFitness {
				minFitness = score
			}
			totalFitness += score
		}
		adjust := math.Abs(minFitness)
		totalFitness += adjust * float64(len(n.Population))

		random := n.rng.Float64() * totalFitness
		value := 0.0
		for _, genome := range n.Population {
			value += scoreOf(genome) + adjust
			if random < value {
				return genome
			}
		}
		return n.Population[n.rng.Intn(len(n.Population))]

	case TournamentSelection:
		size := n.Selection.Size
		if size < 1 {
			size = 1
		}
		participants := make([]*Network, size)
		for i := range participants {
			participants[i] = n.Population[n.rng.Intn(len(n.Population))]
		}
		sort.SliceStable(participants, func(i, j int) bool {
			return scoreOf(participants[i]) > scoreOf(participants[j])
		})
		for i, genome := range participants {
			if n.rng.Float64() < n.Selection.Probability || i == len(participants)-1 {
				return genome
			}
		}
	}
	return n.Population[n.rng.Intn(len(n.Population))]
}

// getOffspring breeds one child from two selected parents.
func (n *Neat) getOffspring() (*Network, error) {
	child, err := CrossoverRand(n.GetParent(), n.GetParent(), n.Equal, n.rng)
	if err != nil {
		return nil, err
	}
	child.Warnings = n.Warnings
	return child, nil
}

// Mutate runs the mutation schedule over the population: with probability
// MutationRate per genome, MutationAmount randomly chosen allowed operators
// are applied. Operators that would exceed a structural cap are skipped with
// a warning.
func (n *Neat) Mutate() {
	for _, genome := range n.Population {
		if n.rng.Float64() >= n.MutationRate {
			continue
		}
		for i := 0; i < n.MutationAmount; i++ {
			if m, ok := n.selectMutation(genome); ok {
				m.Apply(genome)
			}
		}
	}
}

// selectMutation draws an operator for the genome, honoring the structural
// caps. Under the efficient-mutation policy the draw repeats over the allowed
// set until a feasible operator is found.
func (n *Neat) selectMutation(genome *Network) (Mutation, bool) {
	if n.EfficientMutation {
		order := n.rng.Perm(len(n.Mutations))
		for _, idx := range order {
			m := n.Mutations[idx]
			if n.withinCaps(genome, m) && m.Possible(genome) {
				return m, true
			}
		}
		return Mutation{}, false
	}

	m := n.Mutations[n.rng.Intn(len(n.Mutations))]
	if !n.withinCaps(genome, m) {
		return Mutation{}, false
	}
	return m, true
}

func (n *Neat) withinCaps(genome *Network, m Mutation) bool {
	switch m.Kind {
	case AddNode:
		if len(genome.Nodes) >= n.MaxNodes {
			n.warn("genome reached max nodes (%d), skipping %v", n.MaxNodes, m.Kind)
			return false
		}
	case AddConn, AddBackConn, AddSelfConn:
		if len(genome.Connections)+len(genome.SelfConns) >= n.MaxConns {
			n.warn("genome reached max connections (%d), skipping %v", n.MaxConns, m.Kind)
			return false
		}
	case AddGate:
		if len(genome.Gates) >= n.MaxGates {
			n.warn("genome reached max gates (%d), skipping %v", n.MaxGates, m.Kind)
			return false
		}
	}
	return true
}

// Fittest returns the best genome of the current population, evaluating
// first if needed.
func (n *Neat) Fittest(ctx context.Context) (*Network, error) {
	if n.Population[len(n.Population)-1].Score == nil {
		if err := n.Evaluate(ctx); err != nil {
			return nil, err
		}
	}
	n.Sort()
	return n.Population[0], nil
}

func (n *Neat) scores() []float64 {
	out := make([]float64, len(n.Population))
	for i, genome := range n.Population {
		out[i] = scoreOf(genome)
	}
	return out
}

func (n *Neat) warn(format string, args ...interface{}) {
	if n.Warnings {
		fmt.Printf("Warning: "+format+"\n", args...)
	}
}

func scoreOf(genome *Network) float64 {
	if genome.Score == nil {
		return math.Inf(-1)
	}
	return *genome.Score
}
