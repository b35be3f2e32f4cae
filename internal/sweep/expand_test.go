package sweep

import (
	"testing"

	"spikesim/internal/model"
)

func scalarValues(vals ...float64) []model.Value {
	out := make([]model.Value, 0, len(vals))
	for _, v := range vals {
		out = append(out, model.Value{Scalar: v})
	}
	return out
}

func TestCountIsProductOfListLengths(t *testing.T) {
	variables := []model.Variable{
		{Name: "a", Values: scalarValues(1, 2)},
		{Name: "b", Values: scalarValues(3, 4, 5)},
	}
	if got := Count(variables); got != 6 {
		t.Fatalf("unexpected count: got=%d want=6", got)
	}
	if got := Count(nil); got != 0 {
		t.Fatalf("unexpected empty count: got=%d want=0", got)
	}
}

func TestExpandOrderAndKeys(t *testing.T) {
	cfg := model.Configuration{
		Mode: model.ModeDisease,
		Variables: []model.Variable{
			{Name: "a", Values: scalarValues(1, 2)},
			{Name: "b", Values: scalarValues(3, 4)},
		},
	}

	points := Expand(cfg)
	wantKeys := []string{"(1, 3)", "(1, 4)", "(2, 3)", "(2, 4)"}
	if len(points) != len(wantKeys) {
		t.Fatalf("unexpected point count: got=%d want=%d", len(points), len(wantKeys))
	}
	for i, want := range wantKeys {
		if points[i].Key != want {
			t.Fatalf("point %d out of order: got=%s want=%s", i, points[i].Key, want)
		}
	}

	seen := make(map[string]bool, len(points))
	for _, point := range points {
		if seen[point.Key] {
			t.Fatalf("duplicate key: %s", point.Key)
		}
		seen[point.Key] = true
	}
}

func TestExpandMatrixKeyEncoding(t *testing.T) {
	cfg := model.Configuration{
		Mode: model.ModeManifold,
		Variables: []model.Variable{
			{Name: "input_table", Values: []model.Value{
				{Matrix: [][]float64{{0, 1}, {1, 0}}},
			}},
		},
	}

	points := Expand(cfg)
	if len(points) != 1 {
		t.Fatalf("unexpected point count: got=%d want=1", len(points))
	}
	want := "([[0, 1], [1, 0]])"
	if points[0].Key != want {
		t.Fatalf("unexpected key: got=%s want=%s", points[0].Key, want)
	}
}

func TestCursorMatchesExpand(t *testing.T) {
	variables := []model.Variable{
		{Name: "a", Values: scalarValues(1, 2, 3)},
		{Name: "b", Values: scalarValues(0.5)},
	}
	cursor := NewCursor(variables, model.ModeDisease)

	var keys []string
	for {
		point, ok := cursor.Next()
		if !ok {
			break
		}
		keys = append(keys, point.Key)
	}

	points := Expand(model.Configuration{Mode: model.ModeDisease, Variables: variables})
	if len(keys) != len(points) {
		t.Fatalf("cursor and expand disagree: got=%d want=%d", len(keys), len(points))
	}
	for i := range keys {
		if keys[i] != points[i].Key {
			t.Fatalf("key %d mismatch: got=%s want=%s", i, keys[i], points[i].Key)
		}
	}
}

func TestPointSeedDeterministic(t *testing.T) {
	a := PointSeed("(0.1, 0.2)", 42)
	b := PointSeed("(0.1, 0.2)", 42)
	if a != b {
		t.Fatalf("seed not deterministic: %d vs %d", a, b)
	}
	if PointSeed("(0.1, 0.2)", 42) == PointSeed("(0.1, 0.3)", 42) {
		t.Fatal("distinct keys should produce distinct seeds")
	}
	if PointSeed("(0.1, 0.2)", 42) == PointSeed("(0.1, 0.2)", 43) {
		t.Fatal("distinct run seeds should shift the point seed")
	}
}
