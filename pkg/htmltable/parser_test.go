package htmltable

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(name string, values ...string) string {
	var b strings.Builder
	b.WriteString("<tr><td>" + name + "</td>")
	for _, v := range values {
		b.WriteString("<td>" + v + "</td>")
	}
	b.WriteString("</tr>")
	return b.String()
}

func TestParseFullRows(t *testing.T) {
	values := make([]string, 16)
	for i := range values {
		values[i] = fmt.Sprint(i * 100)
	}
	fragment := row("eth0", values...) + row("wl0", values...)

	rows := Parse(fragment)
	require.Len(t, rows, 2)

	assert.Equal(t, "eth0", rows[0].Name)
	assert.Equal(t, "wl0", rows[1].Name)
	require.Len(t, rows[0].Counters, 16)
	assert.Equal(t, uint64(0), rows[0].Counters[0])
	assert.Equal(t, uint64(800), rows[0].Counters[8])
	assert.Equal(t, uint64(1500), rows[0].Counters[15])
}

func TestParseTrimsWhitespace(t *testing.T) {
	rows := Parse("<tr>\n  <td>  eth1 \n</td>\n  <td> 42 </td>\n</tr>")
	require.Len(t, rows, 1)
	assert.Equal(t, "eth1", rows[0].Name)
	assert.Equal(t, []uint64{42}, rows[0].Counters)
}

func TestParseMalformedCellsYieldZero(t *testing.T) {
	rows := Parse(row("eth0", "12", "abc", "", "-5", "3.5", "99999999999999999999999", "7"))
	require.Len(t, rows, 1)

	// Row structure is preserved: one counter per cell after the name.
	assert.Equal(t, []uint64{12, 0, 0, 0, 0, 0, 7}, rows[0].Counters)
}

func TestParseSkipsRowsWithoutCells(t *testing.T) {
	fragment := "<tr></tr>" + row("eth0", "1") + "<tr> </tr>" + row("wl0", "2")

	rows := Parse(fragment)
	require.Len(t, rows, 2)
	assert.Equal(t, "eth0", rows[0].Name)
	assert.Equal(t, "wl0", rows[1].Name)
}

func TestParseShortRows(t *testing.T) {
	rows := Parse(row("eth0", "5", "6") + row("lo"))
	require.Len(t, rows, 2)

	assert.Len(t, rows[0].Counters, 2)
	assert.Empty(t, rows[1].Counters)
	assert.Equal(t, uint64(0), rows[0].Counter(8))
}

func TestParseNestedMarkupInCells(t *testing.T) {
	rows := Parse("<tr><td><b>wl1</b></td><td><span>1</span>0</td></tr>")
	require.Len(t, rows, 1)
	assert.Equal(t, "wl1", rows[0].Name)
	assert.Equal(t, []uint64{10}, rows[0].Counters)
}

func TestParseSkipsHeaderRows(t *testing.T) {
	rows := Parse("<tr><th>Interface</th><th>Rx</th></tr>" + row("eth0", "3"))
	require.Len(t, rows, 1)
	assert.Equal(t, "eth0", rows[0].Name)
	assert.Equal(t, []uint64{3}, rows[0].Counters)
}

func TestParseIgnoresHeaderCellsInDataRows(t *testing.T) {
	rows := Parse("<tr><th>x</th><td>eth1</td><td>7</td></tr>")
	require.Len(t, rows, 1)
	assert.Equal(t, "eth1", rows[0].Name)
	assert.Equal(t, []uint64{7}, rows[0].Counters)
}

func TestParseEmptyFragment(t *testing.T) {
	assert.Empty(t, Parse(""))
	assert.Empty(t, Parse("no table here"))
}

func TestParseCounterCountMatchesCells(t *testing.T) {
	for n := 0; n <= 18; n++ {
		values := make([]string, n)
		for i := range values {
			values[i] = "x"
			if i%2 == 0 {
				values[i] = fmt.Sprint(i)
			}
		}
		rows := Parse(row("if", values...))
		require.Len(t, rows, 1, "cells=%d", n)
		assert.Len(t, rows[0].Counters, n, "cells=%d", n)
	}
}
