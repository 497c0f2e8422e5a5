package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// experiment is one full run description. Flags bind to it directly; a YAML
// file fills in whatever the command line left untouched.
type experiment struct {
	Model   string `yaml:"model"`
	Dataset string `yaml:"dataset"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	Seed         int64   `yaml:"seed"`
	LearningRate float64 `yaml:"lr"`
	WeightDecay  float64 `yaml:"weight_decay"`
	L1Lambda     float64 `yaml:"l1_lambda"`
	RegLambda    float64 `yaml:"reg_lambda"`

	NumChannel     int     `yaml:"num_channel"`
	NumLayer       int     `yaml:"num_layer"`
	KeepPercent    float64 `yaml:"keep_percent"`
	AddSelf        bool    `yaml:"add_self"`
	NormAdj        bool    `yaml:"norm_adj"`
	PoolGraph      string  `yaml:"pool_graph"` // "" or "hierarchy"
	UseEmb         int     `yaml:"use_emb"`
	UseGate        float64 `yaml:"use_gate"`
	AttentionHeads int     `yaml:"attention_head"`
	Dropout        bool    `yaml:"dropout"`
	SGCDegree      int     `yaml:"sgc_degree"`

	ScaleFree  bool    `yaml:"scale_free"`
	NumSamples int     `yaml:"nb_examples"`
	NumNodes   int     `yaml:"nb_nodes"`
	NumClasses int     `yaml:"nb_class"`
	GridSize   int     `yaml:"grid_size"`
	TrainRatio float64 `yaml:"train_ratio"`
	ValidRatio float64 `yaml:"valid_ratio"`

	Checkpoint string `yaml:"checkpoint"`
}

// defaultExperiment mirrors the flag defaults, so YAML merging sees one
// source of truth.
func defaultExperiment() experiment {
	return experiment{
		Model:        "gcn",
		Dataset:      "random",
		Epochs:       10,
		BatchSize:    100,
		Seed:         1993,
		LearningRate: 1e-3,
		NumChannel:   32,
		NumLayer:     1,
		KeepPercent:  100,
		AddSelf:      true,
		NormAdj:      true,
		NumSamples:   1000,
		NumNodes:     100,
		NumClasses:   2,
		GridSize:     10,
		TrainRatio:   0.6,
		ValidRatio:   0.2,
	}
}

// loadExperiment reads a YAML experiment file over the defaults.
func loadExperiment(path string) (experiment, error) {
	exp := defaultExperiment()

	raw, err := os.ReadFile(path)
	if err != nil {
		return exp, fmt.Errorf("read experiment file: %w", err)
	}
	if err = yaml.Unmarshal(raw, &exp); err != nil {
		return exp, fmt.Errorf("parse experiment file: %w", err)
	}

	return exp, nil
}
