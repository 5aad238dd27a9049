package jenkins

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// node is a schemaless XML element. Jenkins serializes plugin classes as element
// names, so descriptors are walked by name instead of decoded into fixed structs.
type node struct {
	XMLName  xml.Name
	Content  string `xml:",chardata"`
	Children []node `xml:",any"`
}

// Jenkins writes XML 1.1 prologs which encoding/xml refuses.
var prologVersion = regexp.MustCompile(`version\s*=\s*["']1\.1["']`)

// NewDecoder returns a lenient XML decoder for Jenkins-written documents. XML 1.1
// prologs are rewritten to 1.0 and non UTF-8 charsets are decoded with x/text.
func NewDecoder(data []byte) *xml.Decoder {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if start := bytes.Index(data, []byte("<?xml")); start >= 0 {
		if end := bytes.Index(data[start:], []byte("?>")); end > 0 {
			prolog := prologVersion.ReplaceAll(data[start:start+end], []byte(`version="1.0"`))
			fixed := make([]byte, 0, len(data))
			fixed = append(fixed, data[:start]...)
			fixed = append(fixed, prolog...)
			fixed = append(fixed, data[start+end:]...)
			data = fixed
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = charsetReader
	return dec
}

func parseTree(data []byte) (*node, error) {
	var root node
	if err := NewDecoder(data).Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return &root, nil
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}

// name returns the local element name.
func (n *node) name() string {
	return n.XMLName.Local
}

// text returns the trimmed character data of the element.
func (n *node) text() string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Content)
}

// child returns the first direct child with the given name.
func (n *node) child(name string) *node {
	if n == nil {
		return nil
	}
	for i := range n.Children {
		if n.Children[i].name() == name {
			return &n.Children[i]
		}
	}
	return nil
}

// first returns the first element child, whatever its name.
func (n *node) first() *node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return &n.Children[0]
}

// find returns the first descendant (document order) accepted by match.
func (n *node) find(match func(*node) bool) *node {
	if n == nil {
		return nil
	}
	for i := range n.Children {
		c := &n.Children[i]
		if match(c) {
			return c
		}
		if found := c.find(match); found != nil {
			return found
		}
	}
	return nil
}

// findNamed returns the first descendant with the given name.
func (n *node) findNamed(name string) *node {
	return n.find(func(c *node) bool { return c.name() == name })
}
