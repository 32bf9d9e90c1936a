package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareIdentical(t *testing.T) {
	doc := map[string]any{"summary": "a bill", "key_points": []any{"one", "two"}}
	c := Compare(doc, doc)
	assert.True(t, c.Empty())
	assert.Nil(t, c.AsMap())
}

func TestCompareAddedRemovedChanged(t *testing.T) {
	prev := map[string]any{
		"summary":    "original summary",
		"key_points": []any{"a"},
		"dropped":    "gone",
	}
	next := map[string]any{
		"summary":    "revised summary",
		"key_points": []any{"a"},
		"new_field":  42,
	}

	c := Compare(prev, next)
	assert.Equal(t, 42, c.Added["new_field"])
	assert.Equal(t, "gone", c.Removed["dropped"])
	assert.Equal(t, FieldEdit{From: "original summary", To: "revised summary"}, c.Changed["summary"])
	assert.NotContains(t, c.Changed, "key_points")
	assert.Equal(t, []string{"dropped", "new_field", "summary"}, c.Fields())
}

func TestCompareNestedChangeSurfacesAtTopLevel(t *testing.T) {
	prev := map[string]any{
		"public_health_impacts": map[string]any{"direct_effects": []any{"x"}},
	}
	next := map[string]any{
		"public_health_impacts": map[string]any{"direct_effects": []any{"x", "y"}},
	}

	c := Compare(prev, next)
	edit, ok := c.Changed["public_health_impacts"]
	assert.True(t, ok)
	assert.Equal(t, prev["public_health_impacts"], edit.From)
	assert.Equal(t, next["public_health_impacts"], edit.To)
}

func TestAsMapShape(t *testing.T) {
	c := Compare(
		map[string]any{"a": 1, "b": 2},
		map[string]any{"b": 3, "c": 4},
	)
	m := c.AsMap()
	assert.Equal(t, map[string]any{"c": 4}, m["added"])
	assert.Equal(t, map[string]any{"a": 1}, m["removed"])
	assert.Equal(t, map[string]any{"b": map[string]any{"from": 2, "to": 3}}, m["changed"])
}

func TestCompareNilPrev(t *testing.T) {
	c := Compare(nil, map[string]any{"summary": "v1"})
	assert.Equal(t, "v1", c.Added["summary"])
	assert.Empty(t, c.Removed)
	assert.Empty(t, c.Changed)
}
