package frame

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "\ufeffPlayer,Team,Minutes,Goals\n" +
	"Bukayo Saka,Arsenal,\"2,401\",16\n" +
	"Rodri,Manchester City,N/a,2\n" +
	"Short Row,Everton\n"

func TestRead_HeaderIndexAndPadding(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 3, f.Len())
	assert.Equal(t, 0, f.Col("Player"))
	assert.Equal(t, -1, f.Col("Nope"))
	assert.Equal(t, "", f.Get(2, "Goals"))
	assert.Len(t, f.Rows[2], 4)
}

func TestFloats_Coercion(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	mins := f.Floats("Minutes")
	assert.Equal(t, 2401.0, mins[0])
	assert.True(t, math.IsNaN(mins[1]))
	assert.True(t, math.IsNaN(mins[2]))
}

func TestFilterSelectWrite(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	mins := f.Floats("Minutes")

	out := f.Filter(func(r int) bool { return mins[r] > 900 }).Select("Player", "Goals", "Missing")
	var buf bytes.Buffer
	require.NoError(t, out.Write(&buf))
	assert.Equal(t, "Player,Goals,Missing\nBukayo Saka,16,\n", buf.String())
}

func TestParseAndFormatFloat(t *testing.T) {
	assert.True(t, math.IsNaN(ParseFloat("abc")))
	assert.True(t, math.IsNaN(ParseFloat("n/a")))
	assert.Equal(t, -1.5, ParseFloat(" -1.5 "))
	assert.Equal(t, "", FormatFloat(math.NaN()))
	assert.Equal(t, "3.14", FormatFloat(3.14159))
}
