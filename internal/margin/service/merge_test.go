package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"margin-service/internal/margin/model"
)

func TestNormalizeKey(t *testing.T) {
	base := NormalizeKey("Widget-1")
	for _, v := range []string{
		"widget-1",
		"  WIDGET-1 ",
		"Wid\u200bget-1",
		"\ufeffWidget-1\u200d",
		"Ｗｉｄｇｅｔ－１", // полноширинные формы
	} {
		assert.Equal(t, base, NormalizeKey(v), v)
	}
	assert.NotEqual(t, base, NormalizeKey("Widget-2"))
}

func rec(id, sku string, price float64) model.Record {
	return model.Record{ID: id, SKU: sku, Price: price}
}

func TestMerge_ReplaceKeepsPositionAndID(t *testing.T) {
	existing := []model.Record{
		{ID: "db-1", SKU: "A", Price: 1, Origin: model.OriginPersisted},
		rec("l-2", "B", 2),
	}
	incoming := []model.Record{rec("n-1", " a ", 10), rec("n-2", "C", 3)}

	out := Merge(existing, incoming, true)

	require.Len(t, out, 3)
	assert.Equal(t, "db-1", out[0].ID)
	assert.Equal(t, model.OriginPersisted, out[0].Origin)
	assert.Equal(t, " a ", out[0].SKU)
	assert.Equal(t, 10.0, out[0].Price)
	assert.Equal(t, "l-2", out[1].ID)
	assert.Equal(t, "n-2", out[2].ID)

	assert.Equal(t, 1.0, existing[0].Price, "inputs are not mutated")
}

func TestMerge_ReplaceCollapsesDuplicates(t *testing.T) {
	existing := []model.Record{rec("1", "A", 1), rec("2", "a", 2)}
	incoming := []model.Record{rec("3", "B", 3), rec("4", "b", 4)}

	out := Merge(existing, incoming, true)

	require.Len(t, out, 2)
	assert.Equal(t, rec("1", "A", 1), out[0])
	assert.Equal(t, rec("3", "b", 4), out[1], "later incoming wins, first position kept")
}

func TestMerge_AppendAllowsDuplicates(t *testing.T) {
	existing := []model.Record{rec("1", "A", 1)}
	incoming := []model.Record{rec("2", "A", 2), rec("3", "A", 3)}

	out := Merge(existing, incoming, false)

	require.Len(t, out, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{out[0].ID, out[1].ID, out[2].ID})
}

func TestMerge_Idempotent(t *testing.T) {
	a := []model.Record{rec("1", "A", 1), rec("2", "B", 2), rec("3", "b", 5)}
	b := []model.Record{rec("4", "b", 20), rec("5", "C", 3), rec("6", "Ｃ", 4)}

	once := Merge(a, b, true)
	twice := Merge(once, b, true)

	assert.Equal(t, once, twice)
}

func TestMergeOne_LeavesOtherDuplicatesAlone(t *testing.T) {
	existing := []model.Record{
		{ID: "db-1", SKU: "A", Price: 1, Origin: model.OriginPersisted},
		{ID: "db-2", SKU: "a", Price: 2, Origin: model.OriginPersisted},
		{ID: "db-3", SKU: "B", Price: 3, Origin: model.OriginPersisted},
	}

	out := MergeOne(existing, rec("n-1", "C", 4), true)
	require.Len(t, out, 4)
	assert.Equal(t, "db-2", out[1].ID)
	assert.Equal(t, "C", out[3].SKU)

	out = MergeOne(existing, rec("n-2", " A ", 10), true)
	require.Len(t, out, 3)
	assert.Equal(t, "db-1", out[0].ID)
	assert.Equal(t, model.OriginPersisted, out[0].Origin)
	assert.Equal(t, 10.0, out[0].Price)
	assert.Equal(t, 2.0, out[1].Price, "second duplicate is untouched")

	out = MergeOne(existing, rec("n-3", "A", 10), false)
	assert.Len(t, out, 4)
	assert.Equal(t, 1.0, existing[0].Price, "input is not modified")
}
