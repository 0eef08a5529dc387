package render

import "math"

// Kind distinguishes the drawable element types.
type Kind int

const (
	KindText Kind = iota
	KindRow
	KindRule
)

// Style selects the font treatment of an element.
type Style int

const (
	StyleBody Style = iota
	StyleStrong
	StyleHeading
	StyleTitle
	StyleMuted
)

// Align is a horizontal alignment in gofpdf notation.
type Align string

const (
	AlignLeft   Align = "L"
	AlignRight  Align = "R"
	AlignCenter Align = "C"
)

// Cell is one column of a KindRow element.
type Cell struct {
	Lines []string
	Width float64
	Align Align
}

// Element is the smallest unit placed on a page. Text is already wrapped.
type Element struct {
	Kind   Kind
	Style  Style
	Lines  []string
	Cells  []Cell
	Border bool
	Height float64
}

// Block groups elements that belong together. A block that does not fit in
// the remaining space of a page is moved to the next one. Flow blocks, and
// blocks taller than a page, break between elements instead. Header elements
// are repeated at the top of every page the block continues on. Gap is the
// space left above the block unless it opens a page.
type Block struct {
	Name     string
	Header   []Element
	Elements []Element
	Flow     bool
	Gap      float64
}

// Height is the total height of the block including its header.
func (b Block) Height() float64 {
	return heightOf(b.Header) + heightOf(b.Elements)
}

func heightOf(elements []Element) float64 {
	var h float64
	for _, e := range elements {
		h += e.Height
	}
	return h
}

// PageSpec describes the printable page in page units.
type PageSpec struct {
	Width        float64
	Height       float64
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64
	LineHeight   float64
}

// A4 is a portrait A4 page in millimetres.
var A4 = PageSpec{
	Width:        210,
	Height:       297,
	MarginTop:    15,
	MarginBottom: 18,
	MarginLeft:   15,
	MarginRight:  15,
	LineHeight:   5,
}

// ContentWidth is the usable width between the margins.
func (p PageSpec) ContentWidth() float64 {
	return p.Width - p.MarginLeft - p.MarginRight
}

// ContentHeight is the usable height between the margins.
func (p PageSpec) ContentHeight() float64 {
	return p.Height - p.MarginTop - p.MarginBottom
}

// Placed is an element positioned on a page. Y is relative to the top margin.
type Placed struct {
	Element
	Block string
	Y     float64
}

// Page is one laid out page.
type Page struct {
	Number   int
	Elements []Placed
}

// Paginate assigns blocks to pages without truncating or overlapping content.
// An element taller than a page is split by line first.
func Paginate(blocks []Block, spec PageSpec) []Page {
	p := paginator{avail: spec.ContentHeight(), lineHeight: spec.LineHeight}
	p.newPage()
	for _, b := range blocks {
		if len(b.Elements) == 0 {
			continue
		}
		b.Elements = p.fit(b.Elements, p.avail-heightOf(b.Header))
		if b.Flow || b.Height() > p.avail {
			p.flow(b)
			continue
		}
		if p.y+p.gap(b)+b.Height() > p.avail {
			p.newPage()
		}
		p.y += p.gap(b)
		p.placeAll(b.Name, b.Header)
		p.placeAll(b.Name, b.Elements)
	}
	return p.pages
}

type paginator struct {
	pages      []Page
	avail      float64
	lineHeight float64
	y          float64
}

func (p *paginator) newPage() {
	p.pages = append(p.pages, Page{Number: len(p.pages) + 1})
	p.y = 0
}

func (p *paginator) gap(b Block) float64 {
	if p.y == 0 {
		return 0
	}
	return b.Gap
}

func (p *paginator) placeAll(block string, elements []Element) {
	last := &p.pages[len(p.pages)-1]
	for _, e := range elements {
		last.Elements = append(last.Elements, Placed{Element: e, Block: block, Y: p.y})
		p.y += e.Height
	}
}

// flow places a block element by element, opening pages as needed. The first
// element always shares a page with the header.
func (p *paginator) flow(b Block) {
	if p.y > 0 && p.y+b.Gap+heightOf(b.Header)+b.Elements[0].Height > p.avail {
		p.newPage()
	}
	p.y += p.gap(b)
	p.placeAll(b.Name, b.Header)
	for i, e := range b.Elements {
		if i > 0 && p.y+e.Height > p.avail {
			p.newPage()
			p.placeAll(b.Name, b.Header)
		}
		p.placeAll(b.Name, []Element{e})
	}
}

// fit splits every element taller than limit into consecutive elements that
// each fit. A single line taller than limit is kept whole.
func (p *paginator) fit(elements []Element, limit float64) []Element {
	out := make([]Element, 0, len(elements))
	for _, e := range elements {
		if e.Height <= limit {
			out = append(out, e)
			continue
		}
		switch e.Kind {
		case KindText:
			out = append(out, splitText(e, limit)...)
		case KindRow:
			out = append(out, p.splitRow(e, limit)...)
		default:
			out = append(out, e)
		}
	}
	return out
}

func linesPer(limit, lineHeight float64) int {
	if lineHeight <= 0 {
		return 1
	}
	return max(1, int(math.Floor(limit/lineHeight+1e-9)))
}

func splitText(e Element, limit float64) []Element {
	if len(e.Lines) < 2 {
		return []Element{e}
	}
	per := e.Height / float64(len(e.Lines))
	n := linesPer(limit, per)
	var out []Element
	for start := 0; start < len(e.Lines); start += n {
		chunk := e
		chunk.Lines = e.Lines[start:min(start+n, len(e.Lines))]
		chunk.Height = float64(len(chunk.Lines)) * per
		out = append(out, chunk)
	}
	return out
}

// splitRow cuts a row into continuation rows. Cells keep their width and
// alignment; a cell whose lines are used up is left empty.
func (p *paginator) splitRow(e Element, limit float64) []Element {
	total := 0
	for _, c := range e.Cells {
		total = max(total, len(c.Lines))
	}
	if total < 2 {
		return []Element{e}
	}
	extra := max(0, e.Height-float64(total)*p.lineHeight)
	n := linesPer(limit-extra, p.lineHeight)
	var out []Element
	for start := 0; start < total; start += n {
		chunk := e
		chunk.Cells = make([]Cell, len(e.Cells))
		used := 0
		for i, c := range e.Cells {
			lo, hi := min(start, len(c.Lines)), min(start+n, len(c.Lines))
			c.Lines = c.Lines[lo:hi]
			used = max(used, len(c.Lines))
			chunk.Cells[i] = c
		}
		chunk.Height = float64(used)*p.lineHeight + extra
		out = append(out, chunk)
	}
	return out
}
