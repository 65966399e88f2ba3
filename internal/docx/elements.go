package docx

import (
	"strings"

	"github.com/beevik/etree"
)

// Part is a story of the document holding block content: the body, a
// header or a footer.
type Part struct {
	Name string
	root *etree.Element
}

// Paragraphs returns the paragraphs directly inside the part
func (p *Part) Paragraphs() []*Paragraph {
	return paragraphsOf(p.root)
}

// Tables returns the tables directly inside the part
func (p *Part) Tables() []*Table {
	var tables []*Table
	for _, e := range childElements(p.root, "tbl") {
		tables = append(tables, &Table{el: e})
	}
	return tables
}

// AddParagraph appends a paragraph holding text in a single run.
// In the body the paragraph goes before the final section properties.
func (p *Part) AddParagraph(text string) *Paragraph {
	para := &Paragraph{el: etree.NewElement("w:p")}
	p.insertBlock(para.el)
	if text != "" {
		para.AddRun(text)
	}
	return para
}

// AddTable appends a rows x cols table whose cells each hold one empty paragraph
func (p *Part) AddTable(rows, cols int) *Table {
	tbl := etree.NewElement("w:tbl")
	tbl.CreateElement("w:tblPr")
	grid := tbl.CreateElement("w:tblGrid")
	for c := 0; c < cols; c++ {
		grid.CreateElement("w:gridCol")
	}
	for r := 0; r < rows; r++ {
		tr := tbl.CreateElement("w:tr")
		for c := 0; c < cols; c++ {
			tr.CreateElement("w:tc").CreateElement("w:p")
		}
	}
	p.insertBlock(tbl)
	return &Table{el: tbl}
}

func (p *Part) insertBlock(block *etree.Element) {
	children := p.root.ChildElements()
	if n := len(children); n > 0 && isW(children[n-1], "sectPr") {
		p.root.InsertChildAt(children[n-1].Index(), block)
		return
	}
	p.root.AddChild(block)
}

// Paragraph is a w:p element
type Paragraph struct {
	el *etree.Element
}

// runContainers hold runs one level below the paragraph
var runContainers = map[string]bool{
	"hyperlink": true,
	"ins":       true,
	"smartTag":  true,
}

// Runs returns the paragraph's text runs in document order
func (p *Paragraph) Runs() []*Run {
	var runs []*Run
	for _, child := range p.el.ChildElements() {
		switch {
		case isW(child, "r"):
			runs = append(runs, &Run{el: child})
		case child.Space == "w" && runContainers[child.Tag]:
			for _, r := range childElements(child, "r") {
				runs = append(runs, &Run{el: r})
			}
		}
	}
	return runs
}

// Text returns the concatenated text of all runs
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs() {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// AddRun appends a run holding text
func (p *Paragraph) AddRun(text string) *Run {
	run := &Run{el: p.el.CreateElement("w:r")}
	run.SetText(text)
	return run
}

// Run is a w:r element: a span of text sharing one formatting
type Run struct {
	el *etree.Element
}

// runSegment is one text-bearing child of a run and its rune offsets in
// the run's text
type runSegment struct {
	el         *etree.Element
	text       []rune
	start, end int
}

// segments lists the w:t, w:tab, w:br and w:cr children in order
func (r *Run) segments() []runSegment {
	var segs []runSegment
	pos := 0
	for _, child := range r.el.ChildElements() {
		if child.Space != "w" {
			continue
		}
		var text []rune
		switch child.Tag {
		case "t":
			text = []rune(child.Text())
		case "tab":
			text = []rune{'\t'}
		case "br", "cr":
			text = []rune{'\n'}
		default:
			continue
		}
		segs = append(segs, runSegment{el: child, text: text, start: pos, end: pos + len(text)})
		pos += len(text)
	}
	return segs
}

// Text returns the run's text; tabs and breaks map to "\t" and "\n"
func (r *Run) Text() string {
	var sb strings.Builder
	for _, seg := range r.segments() {
		sb.WriteString(string(seg.text))
	}
	return sb.String()
}

// SetText replaces the run's text. Only the span that differs from the
// current text is rebuilt: text elements outside it keep their attributes
// (page breaks stay page breaks) and non-text children such as drawings,
// field characters and note references keep their positions.
func (r *Run) SetText(text string) {
	old, next := []rune(r.Text()), []rune(text)

	prefix := 0
	for prefix < len(old) && prefix < len(next) && old[prefix] == next[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(next)-prefix &&
		old[len(old)-1-suffix] == next[len(next)-1-suffix] {
		suffix++
	}
	start, end := prefix, len(old)-suffix
	insert := string(next[prefix : len(next)-suffix])
	if start == end && insert == "" {
		return
	}

	r.splitTextAt(start)
	r.splitTextAt(end)

	segs := r.segments()
	at := -1
	var removed []*etree.Element
	for _, seg := range segs {
		if seg.end == seg.start || seg.start < start {
			continue
		}
		if seg.end <= end && seg.start < end {
			if at < 0 {
				at = seg.el.Index()
			}
			removed = append(removed, seg.el)
			continue
		}
		if at < 0 {
			at = seg.el.Index()
		}
		break
	}
	if at < 0 {
		if n := len(segs); n > 0 {
			at = segs[n-1].el.Index() + 1
		} else {
			at = len(r.el.Child)
		}
	}

	for _, el := range textElements(insert) {
		r.el.InsertChildAt(at, el)
		at++
	}
	for _, el := range removed {
		r.el.RemoveChild(el)
	}
}

// splitTextAt splits the w:t element spanning offset so that offset falls
// on an element boundary
func (r *Run) splitTextAt(offset int) {
	for _, seg := range r.segments() {
		if !isW(seg.el, "t") || offset <= seg.start || offset >= seg.end {
			continue
		}
		k := offset - seg.start
		tail := seg.el.Copy()
		setElementText(seg.el, string(seg.text[:k]))
		setElementText(tail, string(seg.text[k:]))
		r.el.InsertChildAt(seg.el.Index()+1, tail)
		return
	}
}

// textElements renders text as w:t runs separated by w:tab and w:br
func textElements(text string) []*etree.Element {
	var out []*etree.Element
	var segment strings.Builder
	flush := func() {
		if segment.Len() == 0 {
			return
		}
		t := etree.NewElement("w:t")
		setElementText(t, segment.String())
		out = append(out, t)
		segment.Reset()
	}
	for _, c := range text {
		switch c {
		case '\t':
			flush()
			out = append(out, etree.NewElement("w:tab"))
		case '\n':
			flush()
			out = append(out, etree.NewElement("w:br"))
		default:
			segment.WriteRune(c)
		}
	}
	flush()
	return out
}

func setElementText(t *etree.Element, text string) {
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
}

// Bold reports whether the run carries direct bold formatting
func (r *Run) Bold() bool {
	rPr := firstChild(r.el, "rPr")
	if rPr == nil {
		return false
	}
	b := firstChild(rPr, "b")
	if b == nil {
		return false
	}
	switch b.SelectAttrValue("w:val", "true") {
	case "0", "false", "off":
		return false
	}
	return true
}

// SetBold sets or clears direct bold formatting
func (r *Run) SetBold(bold bool) {
	rPr := firstChild(r.el, "rPr")
	if rPr == nil {
		if !bold {
			return
		}
		rPr = etree.NewElement("w:rPr")
		r.el.InsertChildAt(0, rPr)
	}
	if b := firstChild(rPr, "b"); b != nil {
		rPr.RemoveChild(b)
	}
	if bold {
		rPr.InsertChildAt(0, etree.NewElement("w:b"))
	}
}

// Table is a w:tbl element
type Table struct {
	el *etree.Element
}

// Rows returns the table rows
func (t *Table) Rows() []*Row {
	var rows []*Row
	for _, e := range childElements(t.el, "tr") {
		rows = append(rows, &Row{el: e})
	}
	return rows
}

// Cell returns the cell at row r, column c, or nil when out of range
func (t *Table) Cell(r, c int) *Cell {
	rows := t.Rows()
	if r < 0 || r >= len(rows) {
		return nil
	}
	cells := rows[r].Cells()
	if c < 0 || c >= len(cells) {
		return nil
	}
	return cells[c]
}

// Row is a w:tr element
type Row struct {
	el *etree.Element
}

// Cells returns the row's cells
func (r *Row) Cells() []*Cell {
	var cells []*Cell
	for _, e := range childElements(r.el, "tc") {
		cells = append(cells, &Cell{el: e})
	}
	return cells
}

// Cell is a w:tc element
type Cell struct {
	el *etree.Element
}

// Paragraphs returns the paragraphs directly inside the cell
func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphsOf(c.el)
}

// AddParagraph appends a paragraph holding text
func (c *Cell) AddParagraph(text string) *Paragraph {
	para := &Paragraph{el: c.el.CreateElement("w:p")}
	if text != "" {
		para.AddRun(text)
	}
	return para
}

func paragraphsOf(parent *etree.Element) []*Paragraph {
	var paras []*Paragraph
	for _, e := range childElements(parent, "p") {
		paras = append(paras, &Paragraph{el: e})
	}
	return paras
}

func isW(e *etree.Element, tag string) bool {
	return e.Space == "w" && e.Tag == tag
}

func firstChild(parent *etree.Element, tag string) *etree.Element {
	if parent == nil {
		return nil
	}
	for _, child := range parent.ChildElements() {
		if isW(child, tag) {
			return child
		}
	}
	return nil
}

func childElements(parent *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	if parent == nil {
		return out
	}
	for _, child := range parent.ChildElements() {
		if isW(child, tag) {
			out = append(out, child)
		}
	}
	return out
}

// childIndex returns the token index of the n-th child element, or the end
// of the child list when there are fewer elements
func childIndex(parent *etree.Element, n int) int {
	children := parent.ChildElements()
	if n < len(children) {
		return children[n].Index()
	}
	return len(parent.Child)
}

// walkElements visits e and its descendants depth-first; returning false
// from fn skips the element's children
func walkElements(e *etree.Element, fn func(*etree.Element) bool) {
	if !fn(e) {
		return
	}
	for _, child := range e.ChildElements() {
		walkElements(child, fn)
	}
}
