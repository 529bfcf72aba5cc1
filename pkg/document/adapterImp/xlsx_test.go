package adapterImp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"formassist/entities"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellStr("Sheet1", "A1", "Section"))
	require.NoError(t, f.SetCellStr("Sheet1", "A2", "What is the Company Name?"))
	require.NoError(t, f.SetCellStr("Sheet1", "C2", "note"))
	_, err := f.NewSheet("Extra")
	require.NoError(t, err)
	require.NoError(t, f.SetCellStr("Extra", "B1", "Who signs?"))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestXLSXParse(t *testing.T) {
	blocks, err := NewXLSX().Parse(buildWorkbook(t))
	require.NoError(t, err)
	want := []entities.TextBlock{
		{Index: 0, Content: "Section", Kind: entities.KindTableCell},
		{Index: 1, Content: "What is the Company Name?", Kind: entities.KindTableCell},
		{Index: 2, Content: "note", Kind: entities.KindTableCell},
		{Index: 3, Content: "Who signs?", Kind: entities.KindTableCell},
	}
	assert.Equal(t, want, blocks)
}

func TestXLSXSerialize(t *testing.T) {
	doc := buildWorkbook(t)
	a := NewXLSX()
	blocks, err := a.Parse(doc)
	require.NoError(t, err)

	same, err := a.Serialize(doc, blocks)
	require.NoError(t, err)
	assert.Equal(t, doc, same)

	blocks[3].Content = "Who signs? Jane"
	out, err := a.Serialize(doc, blocks)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Extra", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Who signs? Jane", v)
	v, err = f.GetCellValue("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "What is the Company Name?", v)
}

func TestXLSXMalformed(t *testing.T) {
	_, err := NewXLSX().Parse([]byte("nope"))
	assert.ErrorIs(t, err, entities.ErrMalformedDocument)
}
