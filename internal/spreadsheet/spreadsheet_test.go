package spreadsheet

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	for _, h := range []string{"QuantityBought", "quantity_bought", "Quantity Bought", " QUANTITY-BOUGHT "} {
		assert.Equal(t, "quantitybought", NormalizeHeader(h), h)
	}
}

func TestReadCSV(t *testing.T) {
	src := "Name,Quantity Bought,SKU\n" +
		"Parle G, 10 ,pg-01\n" +
		",,\n" +
		"Maggi,abc\n"

	rows, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, "Parle G", rows[0].Get("name"))
	assert.Equal(t, "10", rows[0].Get("quantity_bought"))
	assert.Equal(t, "pg-01", rows[0].Get("barcode", "sku"))

	assert.Equal(t, 4, rows[1].Line, "blank line 3 is skipped but numbering is kept")
	assert.Equal(t, "abc", rows[1].Get("QuantityBought"))
	assert.Equal(t, "", rows[1].Get("sku"))
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b\n\"unterminated,1\n"))
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	headers := []string{"Name", "CurrentStock"}
	require.NoError(t, WriteXLSX(&buf, "Inventory", headers, [][]string{{"Soap", "4"}, {"Brush", "0"}}))

	rows, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Soap", rows[0].Get("name"))
	assert.Equal(t, "4", rows[0].Get("current stock"))
	assert.Equal(t, "Brush", rows[1].Get("name"))
}

func TestReadFileByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "stock.CSV")
	require.NoError(t, os.WriteFile(csvPath, []byte("name\nTea\n"), 0o600))
	rows, err := ReadFile(csvPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	txtPath := filepath.Join(dir, "stock.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("name\nTea\n"), 0o600))
	_, err = ReadFile(txtPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	badXLSX := filepath.Join(dir, "broken.xlsx")
	require.NoError(t, os.WriteFile(badXLSX, []byte("not a zip"), 0o600))
	_, err = ReadFile(badXLSX)
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []string{"Name", "Company"}, [][]string{{"Tea, Green", "Tata"}}))
	assert.Equal(t, "Name,Company\n\"Tea, Green\",Tata\n", buf.String())
}
