package sweep

import (
	"hash/fnv"
	"strings"

	"spikesim/internal/model"
)

// Count returns the number of configuration points the sweep will produce:
// the product of variable-list lengths.
func Count(variables []model.Variable) int {
	if len(variables) == 0 {
		return 0
	}
	count := 1
	for _, variable := range variables {
		count *= len(variable.Values)
	}
	return count
}

// Cursor walks the cartesian product of the sweep variables lazily, in
// declared order with the last variable varying fastest (row-major). Identity
// keys depend on this ordering.
type Cursor struct {
	variables []model.Variable
	mode      model.Mode
	indices   []int
	done      bool
}

func NewCursor(variables []model.Variable, mode model.Mode) *Cursor {
	done := len(variables) == 0
	for _, variable := range variables {
		if len(variable.Values) == 0 {
			done = true
		}
	}
	return &Cursor{
		variables: variables,
		mode:      mode,
		indices:   make([]int, len(variables)),
		done:      done,
	}
}

// Next returns the next configuration point, or ok=false when exhausted.
func (c *Cursor) Next() (model.Point, bool) {
	if c.done {
		return model.Point{}, false
	}

	values := make(map[string]model.Value, len(c.variables))
	encoded := make([]string, 0, len(c.variables))
	for i, variable := range c.variables {
		value := variable.Values[c.indices[i]]
		values[variable.Name] = value
		encoded = append(encoded, value.Encode())
	}
	point := model.Point{
		Key:    "(" + strings.Join(encoded, ", ") + ")",
		Values: values,
		Mode:   c.mode,
	}

	// Advance row-major: last variable fastest.
	for i := len(c.indices) - 1; i >= 0; i-- {
		c.indices[i]++
		if c.indices[i] < len(c.variables[i].Values) {
			return point, true
		}
		c.indices[i] = 0
	}
	c.done = true
	return point, true
}

// Expand materializes the full point sequence. The configuration must have
// passed config.Validate, so every variable list is non-empty.
func Expand(cfg model.Configuration) []model.Point {
	points := make([]model.Point, 0, Count(cfg.Variables))
	cursor := NewCursor(cfg.Variables, cfg.Mode)
	for {
		point, ok := cursor.Next()
		if !ok {
			return points
		}
		points = append(points, point)
	}
}

// PointSeed derives the deterministic base seed for a configuration point.
// Repeated runs with identical input hash to identical seeds; the run seed
// shifts the whole sweep without breaking per-point reproducibility.
func PointSeed(key string, runSeed int64) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64()) ^ runSeed
}
