package carrot

import (
	"fmt"
	"strings"

	"gopkg.in/ini.v1"
)

// iniPopulation maps the [population] section of a configuration file.
type iniPopulation struct {
	PopSize           int     `ini:"pop_size"`
	Elitism           int     `ini:"elitism"`
	Provenance        int     `ini:"provenance"`
	MutationRate      float64 `ini:"mutation_rate"`
	MutationAmount    int     `ini:"mutation_amount"`
	Growth            float64 `ini:"growth"`
	MaxNodes          int     `ini:"max_nodes"`
	MaxConns          int     `ini:"max_conns"`
	MaxGates          int     `ini:"max_gates"`
	Equal             bool    `ini:"equal"`
	Clear             bool    `ini:"clear"`
	EfficientMutation bool    `ini:"efficient_mutation"`
	Warnings          bool    `ini:"warnings"`
	Seed              int64   `ini:"seed"`
}

// iniMutation maps the [mutation] section.
type iniMutation struct {
	Operators    []string `ini:"operators" delim:" "` // names, or FFW / ALL presets
	MinChange    float64  `ini:"min_change"`
	MaxChange    float64  `ini:"max_change"`
	MutateOutput bool     `ini:"mutate_output"`
	KeepGates    bool     `ini:"keep_gates"`
}

// iniTraining maps the [training] section.
type iniTraining struct {
	Rate       float64 `ini:"rate"`
	Momentum   float64 `ini:"momentum"`
	BatchSize  int     `ini:"batch_size"`
	Iterations int     `ini:"iterations"`
	Error      float64 `ini:"error"`
	Cost       string  `ini:"cost"`
	Dropout    float64 `ini:"dropout"`
	Shuffle    bool    `ini:"shuffle"`
	Clear      bool    `ini:"clear"`
}

// iniSelection maps the [selection] section.
type iniSelection struct {
	Strategy    string  `ini:"strategy"` // POWER, FITNESS_PROPORTIONATE, TOURNAMENT
	Power       float64 `ini:"power"`
	Size        int     `ini:"size"`
	Probability float64 `ini:"probability"`
}

// LoadOptions loads population manager options from an INI file. Missing keys
// keep their defaults; invalid values are configuration errors reported
// before any state mutation occurs.
func LoadOptions(filePath string) (Options, error) {
	opts := DefaultOptions()

	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return opts, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	pop := iniPopulation{
		PopSize:        opts.PopSize,
		MutationRate:   opts.MutationRate,
		MutationAmount: opts.MutationAmount,
		MaxNodes:       opts.MaxNodes,
		MaxConns:       opts.MaxConns,
		MaxGates:       opts.MaxGates,
	}
	if err := cfg.Section("population").MapTo(&pop); err != nil {
		return opts, fmt.Errorf("failed to map [population] section: %w", err)
	}

	mut := iniMutation{MinChange: -1, MaxChange: 1, MutateOutput: true, KeepGates: true}
	if err := cfg.Section("mutation").MapTo(&mut); err != nil {
		return opts, fmt.Errorf("failed to map [mutation] section: %w", err)
	}

	sel := iniSelection{Strategy: "POWER", Power: 4, Size: 5, Probability: 0.5}
	if err := cfg.Section("selection").MapTo(&sel); err != nil {
		return opts, fmt.Errorf("failed to map [selection] section: %w", err)
	}

	// --- Validate and assemble ---

	if pop.PopSize <= 0 {
		return opts, fmt.Errorf("config error: pop_size must be positive")
	}
	if pop.Elitism < 0 || pop.Provenance < 0 {
		return opts, fmt.Errorf("config error: elitism and provenance cannot be negative")
	}
	if pop.Elitism+pop.Provenance > pop.PopSize {
		return opts, fmt.Errorf("config error: elitism + provenance cannot exceed pop_size")
	}
	if pop.MutationRate < 0 || pop.MutationRate > 1 {
		return opts, fmt.Errorf("config error: mutation_rate must be between 0 and 1")
	}
	if pop.MutationAmount <= 0 {
		return opts, fmt.Errorf("config error: mutation_amount must be positive")
	}
	if mut.MaxChange < mut.MinChange {
		return opts, fmt.Errorf("config error: max_change cannot be less than min_change")
	}

	opts.PopSize = pop.PopSize
	opts.Elitism = pop.Elitism
	opts.Provenance = pop.Provenance
	opts.MutationRate = pop.MutationRate
	opts.MutationAmount = pop.MutationAmount
	opts.Growth = pop.Growth
	opts.MaxNodes = pop.MaxNodes
	opts.MaxConns = pop.MaxConns
	opts.MaxGates = pop.MaxGates
	opts.Equal = pop.Equal
	opts.Clear = pop.Clear
	opts.EfficientMutation = pop.EfficientMutation
	opts.Warnings = pop.Warnings
	opts.Seed = pop.Seed

	mutations, err := parseOperators(mut)
	if err != nil {
		return opts, err
	}
	opts.Mutations = mutations

	selection, err := SelectionByName(strings.ToUpper(strings.TrimSpace(sel.Strategy)))
	if err != nil {
		return opts, fmt.Errorf("config error: %w", err)
	}
	if sel.Power > 0 {
		selection.Power = sel.Power
	}
	if sel.Size > 0 {
		selection.Size = sel.Size
	}
	if sel.Probability > 0 {
		selection.Probability = sel.Probability
	}
	opts.Selection = selection

	return opts, nil
}

// LoadTrainOptions loads supervised training options from the [training]
// section of an INI file. Missing keys keep their zero values, which Train
// fills with its own defaults.
func LoadTrainOptions(filePath string) (TrainOptions, error) {
	var opts TrainOptions

	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return opts, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	tr := iniTraining{}
	if err := cfg.Section("training").MapTo(&tr); err != nil {
		return opts, fmt.Errorf("failed to map [training] section: %w", err)
	}

	if tr.Rate < 0 {
		return opts, fmt.Errorf("config error: rate cannot be negative")
	}
	if tr.Dropout < 0 || tr.Dropout >= 1 {
		return opts, fmt.Errorf("config error: dropout must be in [0, 1)")
	}

	opts.Rate = tr.Rate
	opts.Momentum = tr.Momentum
	opts.BatchSize = tr.BatchSize
	opts.Iterations = tr.Iterations
	opts.Error = tr.Error
	opts.Dropout = tr.Dropout
	opts.Shuffle = tr.Shuffle
	opts.Clear = tr.Clear
	if tr.Cost != "" {
		cost, err := GetCost(strings.ToUpper(strings.TrimSpace(tr.Cost)))
		if err != nil {
			return opts, fmt.Errorf("config error: %w", err)
		}
		opts.Cost = cost
	}
	return opts, nil
}

// parseOperators resolves the operator name list from the [mutation] section,
// expanding the FFW and ALL presets and applying the shared parameters.
func parseOperators(mut iniMutation) ([]Mutation, error) {
	var mutations []Mutation
	if len(mut.Operators) == 0 {
		mutations = FeedforwardMutations()
	} else {
		for _, raw := range mut.Operators {
			name := strings.ToUpper(strings.TrimSpace(raw))
			if name == "" {
				continue
			}
			switch name {
			case "FFW":
				mutations = append(mutations, FeedforwardMutations()...)
			case "ALL":
				mutations = append(mutations, AllMutations()...)
			default:
				kind, ok := MutationKindByName(name)
				if !ok {
					return nil, fmt.Errorf("config error: unknown mutation operator '%s'", name)
				}
				mutations = append(mutations, NewMutation(kind))
			}
		}
	}
	if len(mutations) == 0 {
		return nil, fmt.Errorf("config error: mutation operator list is empty")
	}

	for i := range mutations {
		mutations[i].Min = mut.MinChange
		mutations[i].Max = mut.MaxChange
		mutations[i].MutateOutput = mut.MutateOutput
		mutations[i].KeepGates = mut.KeepGates
	}
	return mutations, nil
}
