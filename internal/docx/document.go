// Package docx reads, edits and writes WordprocessingML (.docx) packages.
//
// Only the structure needed for placeholder substitution is modelled: the
// document body, its paragraphs and runs, tables, and the default header and
// footer of every section. Every other package part is carried through
// unchanged when the document is saved.
package docx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/psyreport-mcp-server/internal/domain"
)

// XML namespaces and relationship types used by the package
const (
	nsW  = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsR  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsCT = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsPR = "http://schemas.openxmlformats.org/package/2006/relationships"

	relOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	relFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"

	ctMain   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctHeader = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"
	ctFooter = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	ctRels   = "application/vnd.openxmlformats-package.relationships+xml"

	contentTypesName = "[Content_Types].xml"
	packageRelsName  = "_rels/.rels"
	defaultMainName  = "word/document.xml"
)

// entry is one file of the zip package, kept in its original order
type entry struct {
	name     string
	method   uint16
	modified time.Time
	data     []byte
	xml      *etree.Document
}

// Section references the default header and footer in effect for one
// section. A section without its own reference inherits the previous one.
type Section struct {
	Header *Part
	Footer *Part
}

// Document is an in-memory .docx package.
// Documents are mutated in place; load a fresh copy to start over.
type Document struct {
	entries []*entry
	index   map[string]*entry

	mainName string
	body     *Part
	rels     *etree.Document
	types    *etree.Document
	parts    map[string]*Part
}

// Open reads a .docx file from disk
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return doc, nil
}

// Read parses a .docx package held in memory
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidDocument, err)
	}

	d := &Document{
		index: make(map[string]*entry),
		parts: make(map[string]*Part),
	}
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, f.Name, err)
		}
		d.addEntry(&entry{
			name:     f.Name,
			method:   f.Method,
			modified: f.Modified,
			data:     content,
		})
	}

	if err := d.parse(); err != nil {
		return nil, err
	}
	return d, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (d *Document) addEntry(e *entry) {
	d.entries = append(d.entries, e)
	d.index[e.name] = e
}

// xmlEntry parses the named part on first use
func (d *Document) xmlEntry(name string) (*etree.Document, error) {
	e, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing part %s", domain.ErrInvalidDocument, name)
	}
	if e.xml != nil {
		return e.xml, nil
	}
	x := etree.NewDocument()
	if err := x.ReadFromBytes(e.data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidDocument, name, err)
	}
	e.xml = x
	e.data = nil
	return x, nil
}

func (d *Document) parse() error {
	types, err := d.xmlEntry(contentTypesName)
	if err != nil {
		return err
	}
	d.types = types

	d.mainName = defaultMainName
	if pkgRels, err := d.xmlEntry(packageRelsName); err == nil {
		for _, rel := range relationships(pkgRels) {
			if rel.SelectAttrValue("Type", "") == relOfficeDocument {
				d.mainName = strings.TrimPrefix(rel.SelectAttrValue("Target", ""), "/")
				break
			}
		}
	}

	main, err := d.xmlEntry(d.mainName)
	if err != nil {
		return err
	}
	body := firstChild(main.Root(), "body")
	if body == nil {
		return fmt.Errorf("%w: %s has no body", domain.ErrInvalidDocument, d.mainName)
	}
	d.body = &Part{Name: d.mainName, root: body}

	relsName := relsNameFor(d.mainName)
	if _, ok := d.index[relsName]; !ok {
		d.addEntry(&entry{name: relsName, method: zip.Deflate, modified: time.Now(), xml: newRelationships()})
	}
	d.rels, err = d.xmlEntry(relsName)
	return err
}

// Body returns the main document part
func (d *Document) Body() *Part {
	return d.body
}

// Sections resolves the default header and footer of every section in
// document order
func (d *Document) Sections() []Section {
	var sections []Section
	var current Section
	walkElements(d.body.root, func(e *etree.Element) bool {
		if !isW(e, "sectPr") {
			return true
		}
		if header := d.referencedPart(e, "headerReference"); header != nil {
			current.Header = header
		}
		if footer := d.referencedPart(e, "footerReference"); footer != nil {
			current.Footer = footer
		}
		sections = append(sections, current)
		return false
	})
	return sections
}

// referencedPart returns the default-type part referenced by sectPr
func (d *Document) referencedPart(sectPr *etree.Element, tag string) *Part {
	for _, ref := range childElements(sectPr, tag) {
		if kind := ref.SelectAttrValue("w:type", "default"); kind != "default" {
			continue
		}
		id := ref.SelectAttrValue("r:id", "")
		if part := d.partByRelID(id); part != nil {
			return part
		}
	}
	return nil
}

func (d *Document) partByRelID(id string) *Part {
	for _, rel := range relationships(d.rels) {
		if rel.SelectAttrValue("Id", "") != id {
			continue
		}
		if rel.SelectAttrValue("TargetMode", "") == "External" {
			return nil
		}
		name := resolveTarget(d.mainName, rel.SelectAttrValue("Target", ""))
		return d.loadPart(name)
	}
	return nil
}

func (d *Document) loadPart(name string) *Part {
	if part, ok := d.parts[name]; ok {
		return part
	}
	x, err := d.xmlEntry(name)
	if err != nil || x.Root() == nil {
		return nil
	}
	part := &Part{Name: name, root: x.Root()}
	d.parts[name] = part
	return part
}

// AddHeader creates a header part and makes it the default header of the
// last section
func (d *Document) AddHeader() *Part {
	return d.addHeaderFooter("header", "hdr", relHeader, ctHeader, "headerReference")
}

// AddFooter creates a footer part and makes it the default footer of the
// last section
func (d *Document) AddFooter() *Part {
	return d.addHeaderFooter("footer", "ftr", relFooter, ctFooter, "footerReference")
}

func (d *Document) addHeaderFooter(kind, rootTag, relType, contentType, refTag string) *Part {
	n := 1
	for {
		if _, ok := d.index[fmt.Sprintf("word/%s%d.xml", kind, n)]; !ok {
			break
		}
		n++
	}
	target := fmt.Sprintf("%s%d.xml", kind, n)
	name := "word/" + target

	x := newXMLDocument()
	root := x.CreateElement("w:" + rootTag)
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	d.addEntry(&entry{name: name, method: zip.Deflate, modified: time.Now(), xml: x})

	id := d.nextRelID()
	rel := d.rels.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", id)
	rel.CreateAttr("Type", relType)
	rel.CreateAttr("Target", target)

	override := d.types.Root().CreateElement("Override")
	override.CreateAttr("PartName", "/"+name)
	override.CreateAttr("ContentType", contentType)

	sectPr := d.lastSectPr()
	refs := len(childElements(sectPr, "headerReference")) + len(childElements(sectPr, "footerReference"))
	ref := etree.NewElement("w:" + refTag)
	ref.CreateAttr("w:type", "default")
	ref.CreateAttr("r:id", id)
	sectPr.InsertChildAt(childIndex(sectPr, refs), ref)

	part := &Part{Name: name, root: root}
	d.parts[name] = part
	return part
}

func (d *Document) nextRelID() string {
	used := make(map[string]bool)
	for _, rel := range relationships(d.rels) {
		used[rel.SelectAttrValue("Id", "")] = true
	}
	for n := 1; ; n++ {
		id := fmt.Sprintf("rId%d", n)
		if !used[id] {
			return id
		}
	}
}

// lastSectPr returns the body-level section properties, creating them if absent
func (d *Document) lastSectPr() *etree.Element {
	if sectPr := firstChild(d.body.root, "sectPr"); sectPr != nil {
		return sectPr
	}
	return d.body.root.CreateElement("w:sectPr")
}

// Save writes the package as a zip archive
func (d *Document) Save(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, e := range d.entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   e.method,
			Modified: e.modified,
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
		if e.xml != nil {
			_, err = e.xml.WriteTo(fw)
		} else {
			_, err = fw.Write(e.data)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", e.name, err)
		}
	}
	return zw.Close()
}

// Bytes returns the serialized package
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SaveFile writes the package to filename, creating parent directories
func (d *Document) SaveFile(filename string) error {
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// New creates an empty document with a single section
func New() *Document {
	d := &Document{
		index:    make(map[string]*entry),
		parts:    make(map[string]*Part),
		mainName: defaultMainName,
	}
	now := time.Now()

	types := newXMLDocument()
	typesRoot := types.CreateElement("Types")
	typesRoot.CreateAttr("xmlns", nsCT)
	addDefault := func(ext, contentType string) {
		def := typesRoot.CreateElement("Default")
		def.CreateAttr("Extension", ext)
		def.CreateAttr("ContentType", contentType)
	}
	addDefault("rels", ctRels)
	addDefault("xml", "application/xml")
	override := typesRoot.CreateElement("Override")
	override.CreateAttr("PartName", "/"+defaultMainName)
	override.CreateAttr("ContentType", ctMain)
	d.addEntry(&entry{name: contentTypesName, method: zip.Deflate, modified: now, xml: types})

	pkgRels := newRelationships()
	rel := pkgRels.Root().CreateElement("Relationship")
	rel.CreateAttr("Id", "rId1")
	rel.CreateAttr("Type", relOfficeDocument)
	rel.CreateAttr("Target", defaultMainName)
	d.addEntry(&entry{name: packageRelsName, method: zip.Deflate, modified: now, xml: pkgRels})

	main := newXMLDocument()
	root := main.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsW)
	root.CreateAttr("xmlns:r", nsR)
	body := root.CreateElement("w:body")
	body.CreateElement("w:sectPr")
	d.addEntry(&entry{name: defaultMainName, method: zip.Deflate, modified: now, xml: main})

	rels := newRelationships()
	d.addEntry(&entry{name: relsNameFor(defaultMainName), method: zip.Deflate, modified: now, xml: rels})

	d.types = types
	d.rels = rels
	d.body = &Part{Name: defaultMainName, root: body}
	return d
}

func newXMLDocument() *etree.Document {
	x := etree.NewDocument()
	x.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	return x
}

func newRelationships() *etree.Document {
	x := newXMLDocument()
	root := x.CreateElement("Relationships")
	root.CreateAttr("xmlns", nsPR)
	return x
}

func relationships(x *etree.Document) []*etree.Element {
	if x == nil || x.Root() == nil {
		return nil
	}
	return x.Root().SelectElements("Relationship")
}

// relsNameFor maps word/document.xml to word/_rels/document.xml.rels
func relsNameFor(partName string) string {
	dir, file := path.Split(partName)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget resolves a relationship target against the source part's directory
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(source), target)
}
