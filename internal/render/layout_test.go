package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var testPage = PageSpec{Width: 100, Height: 50, MarginTop: 5, MarginBottom: 5, MarginLeft: 5, MarginRight: 5, LineHeight: 1}

func elements(n int, h float64) []Element {
	out := make([]Element, n)
	for i := range out {
		out[i] = Element{Kind: KindText, Lines: []string{"x"}, Height: h}
	}
	return out
}

func headerRow() []Element {
	return []Element{{Kind: KindRow, Style: StyleStrong, Height: 2}}
}

func requireNoOverflow(t *testing.T, pages []Page, spec PageSpec) {
	t.Helper()
	for _, page := range pages {
		for _, e := range page.Elements {
			require.LessOrEqualf(t, e.Y+e.Height, spec.ContentHeight(), "page %d block %s overflows", page.Number, e.Block)
		}
	}
}

func TestWrap(t *testing.T) {
	m := CharMeasurer{}
	require.Equal(t, []string{"the quick", "brown fox"}, Wrap("the quick brown fox", 10, m))
	require.Equal(t, []string{"a", "", "b"}, Wrap("a\n\nb", 10, m))
	require.Equal(t, []string{"abcde", "fghij", "kl"}, Wrap("abcdefghijkl", 5, m))
	require.Equal(t, []string{"hi", "abcd", "efgh"}, Wrap("hi abcdefgh", 4, m))
	require.Equal(t, []string{"line one", "line two"}, Wrap("line one\r\nline two", 40, m))
	require.Empty(t, Wrap("   ", 10, m))
}

func TestWrapKeepsLinesWithinWidth(t *testing.T) {
	text := strings.Repeat("Payment due within thirty days of the invoice date. ", 12)
	lines := Wrap(text, 24, CharMeasurer{})
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		require.LessOrEqual(t, CharMeasurer{}.Width(line), 24.0)
	}
	require.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(lines, " "))
}

func TestPaginateKeepsFittingBlocksTogether(t *testing.T) {
	pages := Paginate([]Block{
		{Name: "a", Elements: elements(1, 10)},
		{Name: "b", Gap: 2, Elements: elements(1, 5)},
	}, testPage)
	require.Len(t, pages, 1)
	require.Equal(t, 12.0, pages[0].Elements[1].Y)
}

func TestPaginateMovesBlockThatDoesNotFit(t *testing.T) {
	pages := Paginate([]Block{
		{Name: "a", Elements: elements(1, 30)},
		{Name: "payment", Gap: 2, Elements: elements(3, 5)},
	}, testPage)
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Elements, 1)
	require.Len(t, pages[1].Elements, 3)
	require.Equal(t, "payment", pages[1].Elements[0].Block)
	require.Equal(t, 0.0, pages[1].Elements[0].Y, "gap is dropped at the top of a page")
	require.Equal(t, 2, pages[1].Number)
	requireNoOverflow(t, pages, testPage)
}

func TestPaginateFlowsOversizedBlockAndRepeatsHeader(t *testing.T) {
	pages := Paginate([]Block{
		{Name: "notes", Header: headerRow(), Elements: elements(50, 1)},
	}, testPage)
	require.Len(t, pages, 2)

	content := 0
	for _, page := range pages {
		require.Equal(t, StyleStrong, page.Elements[0].Style)
		require.Equal(t, 0.0, page.Elements[0].Y)
		content += len(page.Elements) - 1
	}
	require.Equal(t, 50, content)
	require.Len(t, pages[0].Elements, 39)
	requireNoOverflow(t, pages, testPage)
}

func TestPaginateFlowBlockStartsOnCurrentPage(t *testing.T) {
	pages := Paginate([]Block{
		{Name: "a", Elements: elements(1, 30)},
		{Name: "items", Flow: true, Header: headerRow(), Elements: elements(5, 3)},
	}, testPage)
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Elements, 4)
	require.Equal(t, 30.0, pages[0].Elements[1].Y)
	require.Len(t, pages[1].Elements, 4)
	require.Equal(t, StyleStrong, pages[1].Elements[0].Style)
	requireNoOverflow(t, pages, testPage)
}

func TestPaginateFlowBlockNeverLeavesOrphanHeader(t *testing.T) {
	pages := Paginate([]Block{
		{Name: "a", Elements: elements(1, 37)},
		{Name: "items", Flow: true, Header: headerRow(), Elements: elements(2, 3)},
	}, testPage)
	require.Len(t, pages, 2)
	require.Len(t, pages[0].Elements, 1)
	require.Len(t, pages[1].Elements, 3)
}

func TestPaginateSkipsEmptyBlocks(t *testing.T) {
	pages := Paginate([]Block{{Name: "notes"}, {Name: "a", Elements: elements(1, 1)}}, testPage)
	require.Len(t, pages, 1)
	require.Len(t, pages[0].Elements, 1)
}

func TestPaginateSplitsElementTallerThanPage(t *testing.T) {
	lines := make([]string, 100)
	for i := range lines {
		lines[i] = "x"
	}
	row := Element{Kind: KindRow, Border: true, Height: 100.4, Cells: []Cell{
		{Lines: lines, Width: 50},
		{Lines: []string{"9.00"}, Width: 30, Align: AlignRight},
	}}
	pages := Paginate([]Block{
		{Name: "items", Flow: true, Header: headerRow(), Elements: []Element{row}},
		{Name: "notes", Elements: []Element{{Kind: KindText, Lines: lines, Height: 100}}},
	}, testPage)
	requireNoOverflow(t, pages, testPage)

	var rowLines, textLines, amounts int
	for _, page := range pages {
		for _, e := range page.Elements {
			switch {
			case e.Block == "notes":
				textLines += len(e.Lines)
				require.InDelta(t, float64(len(e.Lines)), e.Height, 1e-9)
			case e.Kind == KindRow && len(e.Cells) == 2:
				rowLines += len(e.Cells[0].Lines)
				amounts += len(e.Cells[1].Lines)
				require.Equal(t, AlignRight, e.Cells[1].Align)
			}
		}
	}
	require.Equal(t, 100, rowLines)
	require.Equal(t, 100, textLines)
	require.Equal(t, 1, amounts)
	require.Equal(t, "items", pages[1].Elements[0].Block)
	require.Equal(t, StyleStrong, pages[1].Elements[0].Style)
}
