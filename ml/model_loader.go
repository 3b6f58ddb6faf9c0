package ml

import (
	"fmt"
)

const (
	ModelLinear           = "linear"
	ModelDecisionTree     = "decision_tree"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

type loadable interface {
	Regressor
	Load(path string) error
}

func LoadModel(modelType, path string) (Regressor, error) {
	var model loadable
	switch modelType {
	case ModelLinear:
		model = &LinearRegression{}
	case ModelDecisionTree:
		model = &RegressionTree{}
	case ModelRandomForest:
		model = &Forest{}
	case ModelGradientBoosting:
		model = &GradientBoosting{}
	default:
		return nil, fmt.Errorf("unsupported model type %q", modelType)
	}
	if err := model.Load(path); err != nil {
		return nil, err
	}
	return model, nil
}
