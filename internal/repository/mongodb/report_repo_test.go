package mongodb

import (
	"testing"
	"time"

	"smartsahuji/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func sampleReport() model.DailyReport {
	return model.DailyReport{
		OwnerID:     "0b6c3f0e-9f43-4f57-9a55-4f1b8f3b1d11",
		Day:         "2024-03-01",
		TotalSales:  "170.00",
		UnitsSold:   7,
		TopProducts: []model.ReportProduct{{Name: "Tea", Units: 4, Revenue: "120.00"}},
		LowStock:    []model.LowStockItem{{ID: "r-1", Name: "Sugar", CurrentStock: 1, MinStock: 5, ReorderQty: 10}},
		GeneratedAt: time.Date(2024, 3, 2, 0, 5, 0, 0, time.UTC),
	}
}

func TestDailyReportDocumentShape(t *testing.T) {
	data, err := bson.Marshal(sampleReport())
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(data, &doc))
	for _, key := range []string{"owner_id", "day", "total_sales", "units_sold", "top_products", "low_stock", "generated_at"} {
		assert.Contains(t, doc, key)
	}
	assert.Len(t, doc, 7)
	assert.Equal(t, "170.00", doc["total_sales"], "money is stored as a string")

	raw := bson.Raw(data)
	assert.Equal(t, "120.00", raw.Lookup("top_products", "0", "revenue").StringValue())
	assert.Equal(t, "Tea", raw.Lookup("top_products", "0", "name").StringValue())
	assert.EqualValues(t, 5, raw.Lookup("low_stock", "0", "min_stock").AsInt64())
	assert.EqualValues(t, 10, raw.Lookup("low_stock", "0", "reorder_qty").AsInt64())
}

func TestReportFilterMatchesStoredDocument(t *testing.T) {
	report := sampleReport()
	data, err := bson.Marshal(report)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(data, &doc))

	filter := reportFilter(report)
	require.Len(t, filter, 2)
	for key, want := range filter {
		assert.Equal(t, want, doc[key], key)
	}

	other := report
	other.Day = "2024-03-02"
	assert.NotEqual(t, filter, reportFilter(other), "each day gets its own document")
}
