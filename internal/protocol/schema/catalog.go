package schema

import (
	"fmt"
	"sort"
	"strings"
)

type messageKey struct {
	class uint8
	id    uint8
}

// Catalog maps names and (class, message) ids to definitions. It is built
// once and read concurrently afterwards.
type Catalog struct {
	byName  map[string]*MessageDefinition
	byID    map[messageKey]*MessageDefinition
	classes map[string]uint8
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byName:  make(map[string]*MessageDefinition),
		byID:    make(map[messageKey]*MessageDefinition),
		classes: make(map[string]uint8),
	}
}

// Add registers def. Names and ids must be unique.
func (c *Catalog) Add(def *MessageDefinition) error {
	if def == nil {
		return fmt.Errorf("%w: nil definition", ErrBadCatalog)
	}
	if _, ok := c.byName[def.Name]; ok {
		return fmt.Errorf("%w: name %s", ErrDuplicate, def.Name)
	}
	key := messageKey{class: def.ClassID, id: def.ID}
	if prev, ok := c.byID[key]; ok {
		return fmt.Errorf("%w: id %d:%d used by %s and %s", ErrDuplicate, def.ClassID, def.ID, prev.Name, def.Name)
	}
	if cls := strings.TrimSpace(def.ClassName); cls != "" {
		if id, ok := c.classes[cls]; ok && id != def.ClassID {
			return fmt.Errorf("%w: class %s has ids %d and %d", ErrDuplicate, cls, id, def.ClassID)
		}
		c.classes[cls] = def.ClassID
	}
	c.byName[def.Name] = def
	c.byID[key] = def
	return nil
}

// Lookup returns the definition named name.
func (c *Catalog) Lookup(name string) (*MessageDefinition, error) {
	def, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchMessage, name)
	}
	return def, nil
}

// LookupID returns the definition with the given class and message ids.
func (c *Catalog) LookupID(classID, msgID uint8) (*MessageDefinition, error) {
	def, ok := c.byID[messageKey{class: classID, id: msgID}]
	if !ok {
		return nil, fmt.Errorf("%w: id %d:%d", ErrNoSuchMessage, classID, msgID)
	}
	return def, nil
}

// ClassID returns the id of a named message class.
func (c *Catalog) ClassID(className string) (uint8, error) {
	id, ok := c.classes[className]
	if !ok {
		return 0, fmt.Errorf("%w: class %s", ErrNoSuchMessage, className)
	}
	return id, nil
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	return len(c.byName)
}

// Definitions returns every definition ordered by class then message id.
func (c *Catalog) Definitions() []*MessageDefinition {
	out := make([]*MessageDefinition, 0, len(c.byName))
	for _, def := range c.byName {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
