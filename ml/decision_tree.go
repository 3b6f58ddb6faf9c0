package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// RegressionTree is a fitted tree stored as a flat node array; node 0 is the root.
type RegressionTree struct {
	nodes       []TreeNode
	numFeatures int
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type treeFile struct {
	NumFeatures int        `json:"n_features"`
	Nodes       []TreeNode `json:"nodes"`
}

func NewRegressionTree(nodes []TreeNode, numFeatures int) (*RegressionTree, error) {
	if err := validateNodes(nodes, numFeatures); err != nil {
		return nil, err
	}
	return &RegressionTree{nodes: append([]TreeNode(nil), nodes...), numFeatures: numFeatures}, nil
}

func (t *RegressionTree) Predict(features []float64) (float64, error) {
	if len(t.nodes) == 0 {
		return 0, errors.New("model not loaded")
	}
	if t.numFeatures > 0 && len(features) != t.numFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", t.numFeatures, len(features))
	}
	idx := 0
	for steps := 0; steps <= len(t.nodes); steps++ {
		node := t.nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree has a cycle")
}

func (t *RegressionTree) NumFeatures() int { return t.numFeatures }

func (t *RegressionTree) Save(path string) error {
	if len(t.nodes) == 0 {
		return errors.New("model not loaded")
	}
	payload, err := json.Marshal(treeFile{NumFeatures: t.numFeatures, Nodes: t.nodes})
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o600)
}

func (t *RegressionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file treeFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if err := validateNodes(file.Nodes, file.NumFeatures); err != nil {
		return err
	}
	t.nodes = file.Nodes
	t.numFeatures = file.NumFeatures
	return nil
}

// Forest averages the predictions of its trees.
type Forest struct {
	trees       []*RegressionTree
	numFeatures int
}

type forestFile struct {
	NumFeatures int          `json:"n_features"`
	Trees       [][]TreeNode `json:"trees"`
}

func (f *Forest) Predict(features []float64) (float64, error) {
	if len(f.trees) == 0 {
		return 0, errors.New("model not loaded")
	}
	sum := 0.0
	for i, tree := range f.trees {
		v, err := tree.Predict(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return sum / float64(len(f.trees)), nil
}

func (f *Forest) NumFeatures() int { return f.numFeatures }

func (f *Forest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file forestFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	trees, err := buildTrees(file.Trees, file.NumFeatures)
	if err != nil {
		return err
	}
	f.trees = trees
	f.numFeatures = file.NumFeatures
	return nil
}

// GradientBoosting sums shrunken tree outputs on top of a constant initial estimate.
type GradientBoosting struct {
	init         float64
	learningRate float64
	trees        []*RegressionTree
	numFeatures  int
}

type boostingFile struct {
	NumFeatures  int          `json:"n_features"`
	Init         float64      `json:"init"`
	LearningRate float64      `json:"learning_rate"`
	Trees        [][]TreeNode `json:"trees"`
}

func (g *GradientBoosting) Predict(features []float64) (float64, error) {
	if len(g.trees) == 0 {
		return 0, errors.New("model not loaded")
	}
	y := g.init
	for i, tree := range g.trees {
		v, err := tree.Predict(features)
		if err != nil {
			return 0, fmt.Errorf("stage %d: %w", i, err)
		}
		y += g.learningRate * v
	}
	return y, nil
}

func (g *GradientBoosting) NumFeatures() int { return g.numFeatures }

func (g *GradientBoosting) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file boostingFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return err
	}
	if file.LearningRate <= 0 {
		return errors.New("learning rate must be positive")
	}
	trees, err := buildTrees(file.Trees, file.NumFeatures)
	if err != nil {
		return err
	}
	g.init = file.Init
	g.learningRate = file.LearningRate
	g.trees = trees
	g.numFeatures = file.NumFeatures
	return nil
}

func buildTrees(raw [][]TreeNode, numFeatures int) ([]*RegressionTree, error) {
	if len(raw) == 0 {
		return nil, errors.New("ensemble has no trees")
	}
	trees := make([]*RegressionTree, 0, len(raw))
	for i, nodes := range raw {
		tree, err := NewRegressionTree(nodes, numFeatures)
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		trees = append(trees, tree)
	}
	return trees, nil
}

func validateNodes(nodes []TreeNode, numFeatures int) error {
	if len(nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range nodes {
		if node.IsLeaf {
			continue
		}
		if node.LeftChild <= i || node.LeftChild >= len(nodes) || node.RightChild <= i || node.RightChild >= len(nodes) {
			return fmt.Errorf("node %d has invalid children", i)
		}
		if node.FeatureIdx < 0 || (numFeatures > 0 && node.FeatureIdx >= numFeatures) {
			return fmt.Errorf("node %d splits on invalid feature %d", i, node.FeatureIdx)
		}
	}
	return nil
}
