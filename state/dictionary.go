package state

import (
	"fmt"
	"io"
	"sort"

	"github.com/benbjohnson/symexpr"
	"gopkg.in/yaml.v3"
)

// Ensure type implements interface.
var _ symexpr.RegisterDictionary = (*Dictionary)(nil)

// Dictionary maps register names to descriptors.
type Dictionary struct {
	registers symexpr.Registers
}

// NewDictionary returns an empty dictionary.
func NewDictionary() *Dictionary {
	return &Dictionary{registers: make(symexpr.Registers)}
}

// dictionaryFile is the YAML form of a dictionary.
type dictionaryFile struct {
	Registers map[string]struct {
		Major  uint `yaml:"major"`
		Minor  uint `yaml:"minor"`
		Offset uint `yaml:"offset"`
		Width  uint `yaml:"width"`
	} `yaml:"registers"`
}

// LoadDictionary reads a dictionary from YAML:
//
//	registers:
//	  eax: {major: 0, minor: 0, offset: 0, width: 32}
//	  ax:  {major: 0, minor: 0, offset: 0, width: 16}
func LoadDictionary(r io.Reader) (*Dictionary, error) {
	var f dictionaryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode register dictionary: %w", err)
	}

	d := NewDictionary()
	for name, reg := range f.Registers {
		if err := d.Define(name, symexpr.RegisterDescriptor{
			Major:  reg.Major,
			Minor:  reg.Minor,
			Offset: reg.Offset,
			Width:  reg.Width,
		}); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Define adds a register to the dictionary.
func (d *Dictionary) Define(name string, reg symexpr.RegisterDescriptor) error {
	if name == "" {
		return fmt.Errorf("register name required")
	} else if reg.Width == 0 {
		return fmt.Errorf("register %s: width must be positive", name)
	} else if _, ok := d.registers[name]; ok {
		return fmt.Errorf("register %s: already defined", name)
	}
	d.registers[name] = reg
	return nil
}

// LookupRegister returns the descriptor for name.
func (d *Dictionary) LookupRegister(name string) (symexpr.RegisterDescriptor, bool) {
	return d.registers.LookupRegister(name)
}

// RegisterName returns the name of reg, or its formatted descriptor.
func (d *Dictionary) RegisterName(reg symexpr.RegisterDescriptor) string {
	return d.registers.RegisterName(reg)
}

// Names returns all register names in sorted order.
func (d *Dictionary) Names() []string {
	a := make([]string, 0, len(d.registers))
	for name := range d.registers {
		a = append(a, name)
	}
	sort.Strings(a)
	return a
}
