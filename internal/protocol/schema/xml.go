package schema

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
)

type xmlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []xmlNode  `xml:",any"`
}

func (n xmlNode) attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

func (n xmlNode) intAttr(name string) (int, bool) {
	raw, ok := n.attr(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (n xmlNode) children(name string) []xmlNode {
	out := make([]xmlNode, 0, len(n.Children))
	for _, c := range n.Children {
		if c.XMLName.Local == name {
			out = append(out, c)
		}
	}
	return out
}

// LoadXMLFile reads a message catalog from an XML file.
func LoadXMLFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	defer f.Close()
	c, err := LoadXML(f)
	if err != nil {
		return nil, fmt.Errorf("catalog parse failed (%s): %w", path, err)
	}
	return c, nil
}

// LoadXML reads a protocol/msg_class/message/field document. A
// configuration root wrapping a protocol element (log files) is accepted.
// Every invalid message is reported, not only the first.
func LoadXML(r io.Reader) (*Catalog, error) {
	var root xmlNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCatalog, err)
	}
	switch root.XMLName.Local {
	case "protocol":
	case "configuration":
		nested := root.children("protocol")
		if len(nested) == 0 {
			return nil, fmt.Errorf("%w: no protocol element", ErrBadCatalog)
		}
		root = nested[0]
	default:
		return nil, fmt.Errorf("%w: root element is %s, want protocol", ErrBadCatalog, root.XMLName.Local)
	}

	catalog := NewCatalog()
	var errs *multierror.Error
	for _, cls := range root.children("msg_class") {
		className, okName := cls.attr("name")
		classID, okID := cls.intAttr("id")
		if !okName || !okID || classID < 0 || classID > MaxClassID {
			errs = multierror.Append(errs, fmt.Errorf("%w: msg_class has no valid name or id", ErrBadCatalog))
			continue
		}
		for _, msg := range cls.children("message") {
			def, err := xmlDefinition(msg, className, uint8(classID))
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			if err := catalog.Add(def); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	log.Debug().Int("messages", catalog.Len()).Msg("schema.LoadXML ok")
	return catalog, nil
}

func xmlDefinition(msg xmlNode, className string, classID uint8) (*MessageDefinition, error) {
	name, okName := msg.attr("name")
	id, okID := msg.intAttr("id")
	if !okName || !okID || id < 0 || id > 0xFF {
		return nil, ValidationError{Message: className + "/" + name, Reason: "message has no valid name or id"}
	}
	fields := make([]MessageField, 0)
	for _, f := range msg.children("field") {
		fieldName, _ := f.attr("name")
		typeStr, ok := f.attr("type")
		if !ok {
			return nil, ValidationError{Message: name, Field: fieldName, Reason: "field has no type"}
		}
		t, err := ParseFieldType(typeStr)
		if err != nil {
			return nil, ValidationError{Message: name, Field: fieldName, Reason: err.Error()}
		}
		field, err := NewMessageField(fieldName, t)
		if err != nil {
			return nil, ValidationError{Message: name, Field: fieldName, Reason: err.Error()}
		}
		fields = append(fields, field)
	}
	def, err := NewMessageDefinition(classID, uint8(id), name, fields)
	if err != nil {
		return nil, err
	}
	def.ClassName = className
	return def, nil
}
