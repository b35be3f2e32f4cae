package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"spikesim/internal/model"
)

// Error is a fatal configuration error: the run aborts before any simulation
// work starts and no output file is written.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

type rawConfig struct {
	SimulationParameters map[string]any `toml:"simulation_parameters"`
	Variables            map[string]any `toml:"variables"`
}

// Load reads a TOML configuration file, detects the experiment mode and
// validates it fail-fast. Variable order follows declaration order in the
// file, which the sweep identity keys depend on.
func Load(path string) (model.Configuration, error) {
	var raw rawConfig
	md, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return build(raw, variableOrder(md))
}

// Parse decodes a TOML document from memory. Used by tests and embedding
// callers that already hold the config text.
func Parse(text string) (model.Configuration, error) {
	var raw rawConfig
	md, err := toml.Decode(text, &raw)
	if err != nil {
		return model.Configuration{}, fmt.Errorf("parse config: %w", err)
	}
	return build(raw, variableOrder(md))
}

func variableOrder(md toml.MetaData) []string {
	var names []string
	for _, key := range md.Keys() {
		parts := []string(key)
		if len(parts) == 2 && parts[0] == "variables" {
			names = append(names, parts[1])
		}
	}
	return names
}

func build(raw rawConfig, order []string) (model.Configuration, error) {
	cfg := model.Configuration{}

	params := raw.SimulationParameters
	if params == nil {
		params = map[string]any{}
	}

	cfg.Scalars = scalarsFromParams(params)

	variables, err := decodeVariables(raw.Variables, order)
	if err != nil {
		return model.Configuration{}, err
	}
	cfg.Variables = variables

	mode, err := detectMode(params, variables)
	if err != nil {
		return model.Configuration{}, err
	}
	cfg.Mode = mode

	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return model.Configuration{}, err
	}
	return cfg, nil
}

func scalarsFromParams(params map[string]any) model.Scalars {
	var s model.Scalars
	if v, ok := asString(params["filename"]); ok {
		s.Filename = v
	}
	if v, ok := asInt(params["trials"]); ok {
		s.Trials = v
	}
	if v, ok := asInt(params["seed"]); ok {
		s.Seed = int64(v)
	}
	if v, ok := asInt(params["on_phase"]); ok {
		s.OnPhase = v
	}
	if v, ok := asInt(params["off_phase"]); ok {
		s.OffPhase = v
	}
	if v, ok := asInt(params["settling_period"]); ok {
		s.SettlingPeriod = v
	}
	if v, ok := asFloat64(params["tolerance"]); ok {
		s.Tolerance = v
	}
	if v, ok := asBool(params["exc_only"]); ok {
		s.ExcOnly = v
	}
	if v, ok := asInt(params["iterations1"]); ok {
		s.Iterations1 = v
	}
	if v, ok := asInt(params["iterations2"]); ok {
		s.Iterations2 = v
	}
	if v, ok := asInt(params["first_window"]); ok {
		s.FirstWindow = v
	}
	if v, ok := asBool(params["second_cue"]); ok {
		s.SecondCue = v
	}
	if v, ok := asFloat64(params["weights_scalar"]); ok {
		s.WeightsScalar = v
	}
	if v, ok := asFloat64(params["inh_weights_scalar"]); ok {
		s.InhWeightsScalar = v
	}
	if v, ok := asFloat64(params["skew"]); ok {
		s.Skew = v
	}
	if v, ok := asFloat64(params["c_m"]); ok {
		s.CM = v
	}
	if v, ok := asFloat64(params["a"]); ok {
		s.A = v
	}
	if v, ok := asFloat64(params["b"]); ok {
		s.B = v
	}
	if v, ok := asBool(params["peaks_on"]); ok {
		s.PeaksOn = v
	}
	if v, ok := asBool(params["use_correlation_as_accuracy"]); ok {
		s.UseCorrelationAsAccuracy = v
	}
	if v, ok := asBool(params["measure_snr"]); ok {
		s.MeasureSNR = v
	}
	if v, ok := asBool(params["plasticity_on"]); ok {
		s.PlasticityOn = v
	}
	if v, ok := asBool(params["bayesian_is_not_main"]); ok {
		s.BayesianIsNotMain = v
	}
	if v, ok := asInt(params["gpu_batch"]); ok {
		s.GPUBatch = v
	}
	return s
}

func decodeVariables(vars map[string]any, order []string) ([]model.Variable, error) {
	out := make([]model.Variable, 0, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, name := range order {
		rawValues, ok := vars[name]
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		values, err := decodeValueList(name, rawValues)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Variable{Name: name, Values: values})
	}
	// Keys missed by metadata ordering would silently drop a dimension.
	for name := range vars {
		if !seen[name] {
			values, err := decodeValueList(name, vars[name])
			if err != nil {
				return nil, err
			}
			out = append(out, model.Variable{Name: name, Values: values})
		}
	}
	return out, nil
}

func decodeValueList(name string, raw any) ([]model.Value, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, &Error{Field: "variables." + name, Reason: "must be a list of candidate values"}
	}
	values := make([]model.Value, 0, len(list))
	for i, item := range list {
		value, err := decodeValue(item)
		if err != nil {
			return nil, &Error{Field: fmt.Sprintf("variables.%s[%d]", name, i), Reason: err.Error()}
		}
		values = append(values, value)
	}
	return values, nil
}

func decodeValue(item any) (model.Value, error) {
	if scalar, ok := asFloat64(item); ok {
		return model.Value{Scalar: scalar}, nil
	}
	rows, ok := item.([]any)
	if !ok {
		return model.Value{}, fmt.Errorf("value must be a number or a matrix")
	}
	matrix := make([][]float64, 0, len(rows))
	for _, rawRow := range rows {
		cells, ok := rawRow.([]any)
		if !ok {
			return model.Value{}, fmt.Errorf("matrix rows must be lists of numbers")
		}
		row := make([]float64, 0, len(cells))
		for _, cell := range cells {
			v, ok := asFloat64(cell)
			if !ok {
				return model.Value{}, fmt.Errorf("matrix cells must be numbers")
			}
			row = append(row, v)
		}
		matrix = append(matrix, row)
	}
	if len(matrix) == 0 {
		return model.Value{}, fmt.Errorf("matrix must not be empty")
	}
	return model.Value{Matrix: matrix}, nil
}

func detectMode(params map[string]any, variables []model.Variable) (model.Mode, error) {
	if v, ok := asString(params["mode"]); ok {
		return model.ParseMode(v)
	}
	if _, ok := params["bayesian_is_not_main"]; ok {
		return model.ModeBayesian, nil
	}
	if _, ok := params["gpu_batch"]; ok {
		return model.ModeBayesian, nil
	}
	for _, variable := range variables {
		switch variable.Name {
		case "bayesian_to_exc", "bayesian_distortion", "distortion", "s_d1", "s_d2":
			return model.ModeBayesian, nil
		}
	}
	if _, ok := params["on_phase"]; ok {
		return model.ModeManifold, nil
	}
	if _, ok := params["iterations1"]; ok {
		return model.ModeDisease, nil
	}
	return "", &Error{Field: "mode", Reason: "cannot infer experiment mode: set mode, on_phase or iterations1"}
}

func applyDefaults(cfg *model.Configuration) {
	s := &cfg.Scalars
	if s.WeightsScalar == 0 {
		s.WeightsScalar = 1
	}
	if s.InhWeightsScalar == 0 {
		s.InhWeightsScalar = 1
	}
	if s.CM == 0 {
		s.CM = 25
	}
	if s.FirstWindow == 0 {
		s.FirstWindow = s.Iterations1
	}
	if cfg.Mode == model.ModeBayesian && s.GPUBatch == 0 {
		s.GPUBatch = 1
	}
}

// Validate enforces the fail-fast contract: every variable list non-empty,
// filename and trial count present and positive, and the active mode's phase
// lengths usable. Returns a *Error describing the first violation.
func Validate(cfg model.Configuration) error {
	s := cfg.Scalars
	if strings.TrimSpace(s.Filename) == "" {
		return &Error{Field: "filename", Reason: "output path is required"}
	}
	if s.Trials <= 0 {
		return &Error{Field: "trials", Reason: "trial count must be positive"}
	}
	if !cfg.Mode.Valid() {
		return &Error{Field: "mode", Reason: "experiment mode is required"}
	}
	for _, variable := range cfg.Variables {
		if len(variable.Values) == 0 {
			return &Error{Field: "variables." + variable.Name, Reason: "variable list must not be empty"}
		}
	}
	if len(cfg.Variables) == 0 {
		return &Error{Field: "variables", Reason: "at least one sweep variable is required"}
	}
	if s.CM <= 0 {
		return &Error{Field: "c_m", Reason: "membrane capacitance must be positive"}
	}

	switch cfg.Mode {
	case model.ModeManifold:
		if s.OnPhase <= 0 {
			return &Error{Field: "on_phase", Reason: "must be positive"}
		}
		if s.OffPhase < 0 || s.SettlingPeriod < 0 {
			return &Error{Field: "off_phase", Reason: "phase lengths must not be negative"}
		}
		if !hasVariable(cfg.Variables, "input_table") {
			return &Error{Field: "variables.input_table", Reason: "manifold mode requires an input table"}
		}
	case model.ModeDisease, model.ModeBayesian:
		if s.Iterations1 <= 0 {
			return &Error{Field: "iterations1", Reason: "must be positive"}
		}
		if s.Iterations2 < 0 {
			return &Error{Field: "iterations2", Reason: "must not be negative"}
		}
		if s.FirstWindow <= 0 || s.FirstWindow > s.Iterations1 {
			return &Error{Field: "first_window", Reason: "must be in (0, iterations1]"}
		}
	}
	if cfg.Mode == model.ModeBayesian && s.GPUBatch < 1 {
		return &Error{Field: "gpu_batch", Reason: "batch width must be at least 1"}
	}
	return nil
}

func hasVariable(variables []model.Variable, name string) bool {
	for _, v := range variables {
		if v.Name == name {
			return true
		}
	}
	return false
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func asBool(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int64:
		return int(v), true
	case int:
		return v, true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func asFloat64(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}
