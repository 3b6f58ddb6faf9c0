package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/currency"
	"gopkg.in/yaml.v2"
)

const (
	ManifestFile = "manifest.yaml"

	ArtifactManifest       = "manifest"
	ArtifactModel          = "model"
	ArtifactScaler         = "scaler"
	ArtifactLabelEncoders  = "label encoders"
	ArtifactFeatureColumns = "feature columns"
)

// Manifest names the artifact files of one trained model version.
type Manifest struct {
	Version  string `yaml:"version"`
	Currency struct {
		Code   string `yaml:"code"`
		Symbol string `yaml:"symbol"`
	} `yaml:"currency"`
	Model struct {
		Type string `yaml:"type"`
		File string `yaml:"file"`
	} `yaml:"model"`
	Scaler         string `yaml:"scaler"`
	LabelEncoders  string `yaml:"label_encoders"`
	FeatureColumns string `yaml:"feature_columns"`
}

// Artifacts are the fitted objects the pipeline runs on. They are loaded
// once and never modified.
type Artifacts struct {
	Version        string
	CurrencyCode   string
	CurrencySymbol string
	Model          Regressor
	Scaler         Scaler
	Encoders       *EncoderTable
	Order          FeatureOrder
}

type scalerFile struct {
	Kind         string     `json:"kind"`
	Columns      []string   `json:"columns"`
	Mean         []float64  `json:"mean"`
	Scale        []float64  `json:"scale"`
	DataMin      []float64  `json:"data_min"`
	DataMax      []float64  `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`
}

// LoadArtifacts reads the manifest in dir and every artifact it names. Any
// failure is an *ArtifactLoadError.
func LoadArtifacts(dir string) (*Artifacts, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	manifest, err := readManifest(manifestPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactManifest, Path: manifestPath, Err: err}
	}

	code := manifest.Currency.Code
	if code == "" {
		code = "INR"
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactManifest, Path: manifestPath, Err: fmt.Errorf("currency: %w", err)}
	}
	symbol := manifest.Currency.Symbol
	if symbol == "" {
		symbol = unit.String() + " "
	}

	modelPath := filepath.Join(dir, orDefault(manifest.Model.File, "salary_model.json"))
	model, err := LoadModel(orDefault(manifest.Model.Type, ModelLinear), modelPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactModel, Path: modelPath, Err: err}
	}

	scalerPath := filepath.Join(dir, orDefault(manifest.Scaler, "scaler.json"))
	scaler, err := loadScaler(scalerPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactScaler, Path: scalerPath, Err: err}
	}

	encodersPath := filepath.Join(dir, orDefault(manifest.LabelEncoders, "label_encoders.json"))
	encoders, err := loadEncoders(encodersPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactLabelEncoders, Path: encodersPath, Err: err}
	}

	orderPath := filepath.Join(dir, orDefault(manifest.FeatureColumns, "feature_columns.json"))
	order, err := loadFeatureOrder(orderPath)
	if err != nil {
		return nil, &ArtifactLoadError{Artifact: ArtifactFeatureColumns, Path: orderPath, Err: err}
	}

	if w, ok := model.(widthDeclarer); ok && w.NumFeatures() > 0 && w.NumFeatures() != len(order) {
		return nil, &ArtifactLoadError{
			Artifact: ArtifactModel,
			Path:     modelPath,
			Err:      fmt.Errorf("model expects %d features, feature columns list %d", w.NumFeatures(), len(order)),
		}
	}

	return &Artifacts{
		Version:        manifest.Version,
		CurrencyCode:   unit.String(),
		CurrencySymbol: symbol,
		Model:          model,
		Scaler:         scaler,
		Encoders:       encoders,
		Order:          order,
	}, nil
}

func readManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var manifest Manifest
	if err := yaml.NewDecoder(file).Decode(&manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

func loadScaler(path string) (Scaler, error) {
	var file scalerFile
	if err := readJSON(path, &file); err != nil {
		return nil, err
	}
	columns := make([]Column, 0, len(file.Columns))
	for _, name := range file.Columns {
		col, err := ParseColumn(name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	switch strings.ToLower(file.Kind) {
	case "", "standard":
		return NewStandardScaler(columns, file.Mean, file.Scale)
	case "minmax":
		featureRange := file.FeatureRange
		if featureRange == [2]float64{} {
			featureRange = [2]float64{0, 1}
		}
		return NewMinMaxScaler(columns, file.DataMin, file.DataMax, featureRange)
	default:
		return nil, fmt.Errorf("unsupported scaler kind %q", file.Kind)
	}
}

func loadEncoders(path string) (*EncoderTable, error) {
	var raw map[string][]string
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	encoders := make(map[Column]*LabelEncoder, len(raw))
	for name, classes := range raw {
		col, err := ParseColumn(name)
		if err != nil {
			return nil, err
		}
		enc, err := NewLabelEncoder(classes)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		encoders[col] = enc
	}
	return NewEncoderTable(encoders)
}

func loadFeatureOrder(path string) (FeatureOrder, error) {
	var names []string
	if err := readJSON(path, &names); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, errors.New("feature column list is empty")
	}
	return NewFeatureOrder(names)
}

func readJSON(path string, v interface{}) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, v)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
