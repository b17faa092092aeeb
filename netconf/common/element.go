package common

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Element is an xml element held verbatim, together with its resolved name.
// An element taken out of an enclosing document re-declares the namespaces it inherited,
// so its text is a namespace-well-formed document on its own.
type Element struct {
	XMLName xml.Name
	raw     string
}

// ParseElement parses text that must hold exactly one root element.
func ParseElement(text string) (*Element, error) {
	elements, err := ParseElements(text)
	if err != nil {
		return nil, err
	}
	if len(elements) != 1 {
		return nil, errors.Errorf("expected a single root element, found %d", len(elements))
	}
	return elements[0], nil
}

// ParseElements splits text into its top-level elements, in document order.
// Whitespace, comments and processing instructions between elements are discarded.
func ParseElements(text string) ([]*Element, error) {
	elements, _, err := elementsAt(text, 0)
	return elements, err
}

// ChildElements delivers the children of the single root element held by text, for example the content
// of a <data> element. scope holds the namespace declarations in force around text; declarations
// that are not namespace attributes are ignored.
func ChildElements(text string, scope []xml.Attr) ([]*Element, error) {
	var sb strings.Builder
	sb.WriteString("<scope")
	for _, d := range NamespaceDeclarations(scope) {
		writeDeclaration(&sb, d)
	}
	sb.WriteString(">")
	sb.WriteString(text)
	sb.WriteString("</scope>")

	elements, roots, err := elementsAt(sb.String(), 2)
	if err != nil {
		return nil, err
	}
	if roots != 1 {
		return nil, errors.Errorf("expected a single root element, found %d", roots)
	}
	return elements, nil
}

// NamespaceDeclarations delivers the xmlns and xmlns:prefix attributes of attrs.
func NamespaceDeclarations(attrs []xml.Attr) []xml.Attr {
	var decls []xml.Attr
	for _, a := range attrs {
		if _, ok := declaredPrefix(a); ok {
			decls = append(decls, a)
		}
	}
	return decls
}

// NewElement builds an element named local in namespace space, holding children in order.
// Children without a namespace keep it by undeclaring the default namespace.
func NewElement(space, local string, children ...*Element) *Element {
	var sb strings.Builder
	sb.WriteString("<" + local)
	if space != "" {
		sb.WriteString(` xmlns="`)
		_ = xml.EscapeText(&sb, []byte(space))
		sb.WriteString(`"`)
	}
	if len(children) == 0 {
		sb.WriteString("/>")
		return &Element{XMLName: xml.Name{Space: space, Local: local}, raw: sb.String()}
	}

	sb.WriteString(">")
	for _, child := range children {
		if space != "" && child.XMLName.Space == "" {
			sb.WriteString(insertDeclarations(child.raw, ` xmlns=""`))
			continue
		}
		sb.WriteString(child.String())
	}
	sb.WriteString("</" + local + ">")
	return &Element{XMLName: xml.Name{Space: space, Local: local}, raw: sb.String()}
}

// String delivers the serialized element.
func (e *Element) String() string {
	if e == nil {
		return ""
	}
	return e.raw
}

// namespaces maps a prefix, empty for the default namespace, to its uri.
type namespaces map[string]string

func (ns namespaces) with(attrs []xml.Attr) namespaces {
	scoped := make(namespaces, len(ns))
	for p, uri := range ns {
		scoped[p] = uri
	}
	for _, a := range attrs {
		if p, ok := declaredPrefix(a); ok {
			scoped[p] = a.Value
		}
	}
	return scoped
}

// elementsAt delivers the elements found at depth in doc, each carrying the namespaces in scope around it,
// and the number of elements found at depth-1. Text at or below depth-1 is rejected.
func elementsAt(doc string, depth int) ([]*Element, int, error) {
	d := xml.NewDecoder(strings.NewReader(doc))
	scopes := []namespaces{{}}

	var elements []*Element
	parents := 0

	for {
		start := d.InputOffset()
		token, err := d.Token()
		if err == io.EOF {
			return elements, parents, nil
		}
		if err != nil {
			return nil, 0, errors.Wrap(err, "malformed xml")
		}

		level := len(scopes) - 1
		switch token := token.(type) {
		case xml.StartElement:
			if level == depth {
				if err = d.Skip(); err != nil {
					return nil, 0, errors.Wrapf(err, "malformed xml in element %s", token.Name.Local)
				}
				raw := redeclare(doc[start:d.InputOffset()], scopes[level], token.Attr)
				elements = append(elements, &Element{XMLName: token.Name, raw: raw})
				continue
			}
			if level == depth-1 {
				parents++
			}
			scopes = append(scopes, scopes[level].with(token.Attr))
		case xml.EndElement:
			scopes = scopes[:level]
		case xml.CharData:
			if level >= depth-1 && len(bytes.TrimSpace(token)) > 0 {
				return nil, 0, errors.Errorf("unexpected text %q outside of an element", string(bytes.TrimSpace(token)))
			}
		}
	}
}

// redeclare adds to the start tag of raw the declarations of inherited that its own attributes do not make.
func redeclare(raw string, inherited namespaces, own []xml.Attr) string {
	declared := namespaces{}.with(own)

	prefixes := make([]string, 0, len(inherited))
	for p, uri := range inherited {
		if _, ok := declared[p]; !ok && uri != "" {
			prefixes = append(prefixes, p)
		}
	}
	if len(prefixes) == 0 {
		return raw
	}
	sort.Strings(prefixes)

	var sb strings.Builder
	for _, p := range prefixes {
		name := "xmlns"
		if p != "" {
			name += ":" + p
		}
		writeDeclaration(&sb, xml.Attr{Name: xml.Name{Local: name}, Value: inherited[p]})
	}
	return insertDeclarations(raw, sb.String())
}

// insertDeclarations places decls after the element name of the start tag opening raw.
func insertDeclarations(raw, decls string) string {
	end := strings.IndexAny(raw[1:], " \t\r\n/>") + 1
	if end <= 0 {
		return raw
	}
	return raw[:end] + decls + raw[end:]
}

func writeDeclaration(sb *strings.Builder, a xml.Attr) {
	p, _ := declaredPrefix(a)
	sb.WriteString(" xmlns")
	if p != "" {
		sb.WriteString(":" + p)
	}
	sb.WriteString(`="`)
	_ = xml.EscapeText(sb, []byte(a.Value))
	sb.WriteString(`"`)
}

// declaredPrefix reports the prefix declared by a, if it is a namespace declaration.
// The decoder delivers xmlns:p as {xmlns p} and xmlns as {"" xmlns}.
func declaredPrefix(a xml.Attr) (string, bool) {
	switch {
	case a.Name.Space == "xmlns":
		return a.Name.Local, true
	case a.Name.Space == "" && a.Name.Local == "xmlns":
		return "", true
	case a.Name.Space == "" && strings.HasPrefix(a.Name.Local, "xmlns:"):
		return strings.TrimPrefix(a.Name.Local, "xmlns:"), true
	}
	return "", false
}
