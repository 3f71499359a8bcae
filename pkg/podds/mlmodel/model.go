// Package mlmodel evaluates gradient boosted tree ensembles exported from
// LightGBM as minified JSON. It has no training code.
package mlmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownMarket = errors.New("no model for market")
	ErrBadModel      = errors.New("malformed model")
)

// Metadata is the header written by the exporter
type Metadata struct {
	Market       string   `json:"market"`
	NumTrees     int      `json:"num_trees"`
	NumClass     int      `json:"num_class"`
	FeatureNames []string `json:"feature_names"`
	Objective    string   `json:"objective"`
}

// Node is either a split (LeftChild/RightChild set) or a leaf (LeafValue set)
type Node struct {
	SplitFeature *int     `json:"split_feature,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
	DefaultLeft  bool     `json:"default_left,omitempty"`
	LeftChild    *Node    `json:"left_child,omitempty"`
	RightChild   *Node    `json:"right_child,omitempty"`
	LeafValue    *float64 `json:"leaf_value,omitempty"`
}

type Tree struct {
	Index     int     `json:"tree_index"`
	Shrinkage float64 `json:"shrinkage"`
	Root      *Node   `json:"tree_structure"`
}

// Model is one market's ensemble
type Model struct {
	Metadata     Metadata `json:"metadata"`
	Trees        []Tree   `json:"tree_info"`
	FeatureNames []string `json:"feature_names"`
}

// Parse decodes and checks a model document
func Parse(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModel, err)
	}
	if len(m.FeatureNames) == 0 {
		m.FeatureNames = m.Metadata.FeatureNames
	}
	if m.Metadata.NumClass < 1 {
		m.Metadata.NumClass = 1
	}
	if len(m.Trees) == 0 {
		return nil, fmt.Errorf("%w: no trees", ErrBadModel)
	}
	for i, t := range m.Trees {
		if err := checkNode(t.Root, len(m.FeatureNames)); err != nil {
			return nil, fmt.Errorf("%w: tree %d: %v", ErrBadModel, i, err)
		}
	}
	return &m, nil
}

func checkNode(n *Node, features int) error {
	if n == nil {
		return errors.New("missing node")
	}
	if n.LeafValue != nil {
		return nil
	}
	if n.SplitFeature == nil {
		return errors.New("node is neither a split nor a leaf")
	}
	if *n.SplitFeature < 0 || *n.SplitFeature >= features {
		return fmt.Errorf("split feature %d out of range", *n.SplitFeature)
	}
	if err := checkNode(n.LeftChild, features); err != nil {
		return err
	}
	return checkNode(n.RightChild, features)
}

// Vector orders named features the way the model expects.
// Absent features are NaN and follow each split's default direction.
func (m *Model) Vector(features map[string]float64) []float64 {
	out := make([]float64, len(m.FeatureNames))
	for i, name := range m.FeatureNames {
		v, ok := features[name]
		if !ok {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// leaf walks one tree. value <= threshold goes left.
func (n *Node) leaf(x []float64) float64 {
	for n.LeafValue == nil {
		v := x[*n.SplitFeature]
		var left bool
		if math.IsNaN(v) {
			left = n.DefaultLeft
		} else {
			left = v <= n.Threshold
		}
		if left {
			n = n.LeftChild
		} else {
			n = n.RightChild
		}
	}
	return *n.LeafValue
}

// Raw returns the summed leaf values per class. Exported leaf values already
// include the shrinkage.
func (m *Model) Raw(x []float64) []float64 {
	k := m.Metadata.NumClass
	raw := make([]float64, k)
	for i, t := range m.Trees {
		raw[i%k] += t.Root.leaf(x)
	}
	return raw
}

// Predict returns class probabilities: one sigmoid probability for binary
// models, a softmax over the classes otherwise
func (m *Model) Predict(features map[string]float64) []float64 {
	raw := m.Raw(m.Vector(features))
	if len(raw) == 1 {
		return []float64{sigmoid(raw[0])}
	}
	return softmax(raw)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func softmax(raw []float64) []float64 {
	hi := raw[0]
	for _, v := range raw[1:] {
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(raw))
	sum := 0.0
	for i, v := range raw {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
