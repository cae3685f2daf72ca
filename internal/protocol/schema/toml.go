package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

type tomlCatalog struct {
	Classes []tomlClass `toml:"class"`
}

type tomlClass struct {
	Name     string        `toml:"name"`
	ID       int           `toml:"id"`
	Messages []tomlMessage `toml:"message"`
}

type tomlMessage struct {
	Name   string      `toml:"name"`
	ID     int         `toml:"id"`
	Fields []tomlField `toml:"fields"`
}

type tomlField struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
}

// LoadTOMLFile reads a message catalog from a TOML file.
func LoadTOMLFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog load failed (%s): %w", path, err)
	}
	c, err := LoadTOML(data)
	if err != nil {
		return nil, fmt.Errorf("catalog parse failed (%s): %w", path, err)
	}
	return c, nil
}

// LoadTOML reads a catalog laid out as [[class]] tables holding
// [[class.message]] tables with an inline fields array.
func LoadTOML(data []byte) (*Catalog, error) {
	var raw tomlCatalog
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCatalog, err)
	}
	catalog := NewCatalog()
	var errs *multierror.Error
	for _, cls := range raw.Classes {
		if cls.Name == "" || cls.ID < 0 || cls.ID > MaxClassID {
			errs = multierror.Append(errs, fmt.Errorf("%w: class %q has no valid name or id", ErrBadCatalog, cls.Name))
			continue
		}
		for _, msg := range cls.Messages {
			def, err := tomlDefinition(msg, cls)
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
	log.Debug().Int("messages", catalog.Len()).Msg("schema.LoadTOML ok")
	return catalog, nil
}

func tomlDefinition(msg tomlMessage, cls tomlClass) (*MessageDefinition, error) {
	if msg.ID < 0 || msg.ID > 0xFF {
		return nil, ValidationError{Message: msg.Name, Reason: fmt.Sprintf("message id %d out of range", msg.ID)}
	}
	fields := make([]MessageField, 0, len(msg.Fields))
	for _, f := range msg.Fields {
		t, err := ParseFieldType(f.Type)
		if err != nil {
			return nil, ValidationError{Message: msg.Name, Field: f.Name, Reason: err.Error()}
		}
		field, err := NewMessageField(f.Name, t)
		if err != nil {
			return nil, ValidationError{Message: msg.Name, Field: f.Name, Reason: err.Error()}
		}
		fields = append(fields, field)
	}
	def, err := NewMessageDefinition(uint8(cls.ID), uint8(msg.ID), msg.Name, fields)
	if err != nil {
		return nil, err
	}
	def.ClassName = cls.Name
	return def, nil
}

// LoadFile picks the loader from the file extension; anything that is not
// .toml is read as XML.
func LoadFile(path string) (*Catalog, error) {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return LoadTOMLFile(path)
	}
	return LoadXMLFile(path)
}
