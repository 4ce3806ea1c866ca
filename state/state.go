package state

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/benbjohnson/immutable"
	"github.com/benbjohnson/symexpr"
	"gopkg.in/yaml.v3"
)

// Ensure type implements interface.
var _ symexpr.Operators = (*State)(nil)

// DefaultAddressWidth is the address width used when a state file omits it.
const DefaultAddressWidth = symexpr.Width64

// State is a machine state snapshot: register values and mapped regions of
// byte-addressed memory. Values may be symbolic. Mapped bytes that were never
// written read as cells of the region's symbolic array.
type State struct {
	dict *Dictionary

	addressWidth uint
	littleEndian bool

	registers map[symexpr.RegisterDescriptor]symexpr.Expr

	// Mapped regions, keyed by base address.
	regions     *immutable.SortedMap
	nextArrayID uint64
}

// region is a mapped range of memory backed by an array of bytes.
type region struct {
	array *symexpr.Array
	size  uint64
}

// NewState returns an empty little-endian state.
func NewState(dict *Dictionary, addressWidth uint) *State {
	if dict == nil {
		dict = NewDictionary()
	}
	return &State{
		dict:         dict,
		addressWidth: addressWidth,
		littleEndian: true,
		registers:    make(map[symexpr.RegisterDescriptor]symexpr.Expr),
		regions:      immutable.NewSortedMap(&uint64Comparer{}),
		nextArrayID:  1,
	}
}

// AddressWidth returns the width of memory addresses, in bits.
func (s *State) AddressWidth() uint { return s.addressWidth }

// IsLittleEndian returns true if multi-byte values are stored least
// significant byte first.
func (s *State) IsLittleEndian() bool { return s.littleEndian }

// SetLittleEndian sets the byte order of memory accesses.
func (s *State) SetLittleEndian(v bool) { s.littleEndian = v }

// Clone returns a copy of the state. Memory is shared until written.
func (s *State) Clone() *State {
	other := *s
	other.registers = make(map[symexpr.RegisterDescriptor]symexpr.Expr, len(s.registers))
	for k, v := range s.registers {
		other.registers[k] = v
	}
	return &other
}

// RegisterDictionary returns the dictionary used to name registers.
func (s *State) RegisterDictionary() symexpr.RegisterDictionary { return s.dict }

// SetRegister sets the value of the named register.
func (s *State) SetRegister(name string, value symexpr.Expr) error {
	reg, ok := s.dict.LookupRegister(name)
	if !ok {
		return fmt.Errorf("%w: %s", symexpr.ErrUnknownRegister, name)
	} else if w := symexpr.ExprWidth(value); w != reg.Width {
		return fmt.Errorf("register %s is %d bits, value is %d bits", name, reg.Width, w)
	}
	s.registers[reg] = value
	return nil
}

// ReadRegister returns the value of reg. A register that was not set itself
// is read from a set register with the same major and minor numbers whose
// bits cover it.
func (s *State) ReadRegister(reg symexpr.RegisterDescriptor) (symexpr.Expr, error) {
	if value, ok := s.registers[reg]; ok {
		return value, nil
	}

	for other, value := range s.registers {
		if other.Major != reg.Major || other.Minor != reg.Minor {
			continue
		} else if reg.Offset < other.Offset || reg.Offset+reg.Width > other.Offset+other.Width {
			continue
		}
		return symexpr.NewExtractExpr(value, reg.Offset-other.Offset, reg.Width), nil
	}
	return nil, fmt.Errorf("%w: %s", symexpr.ErrUnknownRegister, s.dict.RegisterName(reg))
}

// Map maps size bytes of memory starting at base. The contents are symbolic
// until written.
func (s *State) Map(base, size uint64) error {
	if size == 0 {
		return fmt.Errorf("map 0x%x: size must be positive", base)
	} else if base+size-1 < base || (s.addressWidth < 64 && base+size-1 > (uint64(1)<<s.addressWidth)-1) {
		return fmt.Errorf("map 0x%x: %d bytes exceed the %d-bit address space", base, size, s.addressWidth)
	}

	// Reject overlap with the regions on either side.
	if prevBase, prev := s.findRegionContaining(base); prev != nil {
		return fmt.Errorf("map 0x%x: overlaps region at 0x%x", base, prevBase)
	}
	itr := s.regions.Iterator()
	itr.Seek(base)
	if k, _ := itr.Next(); k != nil && k.(uint64) < base+size {
		return fmt.Errorf("map 0x%x: overlaps region at 0x%x", base, k.(uint64))
	}

	array := symexpr.NewArray(s.nextArrayID, s.addressWidth, symexpr.Width8)
	s.nextArrayID++
	s.regions = s.regions.Set(base, &region{array: array, size: size})
	return nil
}

// findRegionContaining returns the region containing addr, if any.
func (s *State) findRegionContaining(addr uint64) (base uint64, r *region) {
	// Seek to the given address or the next available address.
	itr := s.regions.Iterator()
	if itr.Seek(addr); itr.Done() {
		itr.Last()
	}

	// Move backwards until address range too low.
	for !itr.Done() {
		k, v := itr.Prev()
		key, value := k.(uint64), v.(*region)

		if addr >= key && addr-key < value.size {
			return key, value
		} else if addr > key {
			break // target address above region, exit
		}
	}
	return 0, nil
}

// regionFor returns the region holding all n bytes at addr.
func (s *State) regionFor(addr, n uint64) (uint64, *region, error) {
	base, r := s.findRegionContaining(addr)
	if r == nil {
		return 0, nil, fmt.Errorf("%w: 0x%x", symexpr.ErrAddressNotMapped, addr)
	} else if addr-base+n > r.size {
		return 0, nil, fmt.Errorf("%w: 0x%x", symexpr.ErrAddressNotMapped, base+r.size)
	}
	return base, r, nil
}

// WriteMemory stores value at addr. The value must be a whole number of bytes
// and every byte must be mapped.
func (s *State) WriteMemory(addr uint64, value symexpr.Expr) error {
	w := symexpr.ExprWidth(value)
	if w == 0 || w%8 != 0 {
		return fmt.Errorf("write 0x%x: value width %d is not a whole number of bytes", addr, w)
	}

	base, r, err := s.regionFor(addr, uint64(w/8))
	if err != nil {
		return err
	}

	offset := symexpr.NewConstantExpr(addr-base, s.addressWidth)
	s.regions = s.regions.Set(base, &region{
		array: r.array.Store(offset, value, s.littleEndian),
		size:  r.size,
	})
	return nil
}

// ReadMemory returns the width-bit value at addr. The address must be a
// constant of the state's address width.
func (s *State) ReadMemory(addr symexpr.Expr, width uint) (symexpr.Expr, error) {
	if width == 0 || width%8 != 0 {
		return nil, fmt.Errorf("read %s: width %d is not a whole number of bytes", addr, width)
	} else if w := symexpr.ExprWidth(addr); w != s.addressWidth {
		return nil, fmt.Errorf("read %s: address is %d bits, expected %d", addr, w, s.addressWidth)
	}

	c, ok := addr.(*symexpr.ConstantExpr)
	if !ok {
		return nil, fmt.Errorf("%w: symbolic address %s", symexpr.ErrAddressNotMapped, addr)
	}

	base, r, err := s.regionFor(c.Value, uint64(width/8))
	if err != nil {
		return nil, err
	}
	offset := symexpr.NewConstantExpr(c.Value-base, s.addressWidth)
	return r.array.Select(offset, width, s.littleEndian), nil
}

// stateFile is the YAML form of a state. Values are expression text.
type stateFile struct {
	AddressWidth uint              `yaml:"address_width"`
	ByteOrder    string            `yaml:"byte_order"`
	Registers    map[string]string `yaml:"registers"`
	Memory       []struct {
		Address uint64 `yaml:"address"`
		Size    uint64 `yaml:"size"`
		Value   string `yaml:"value"`
	} `yaml:"memory"`
}

// Load reads a state from YAML, parsing values with p:
//
//	address_width: 32
//	byte_order: little
//	registers:
//	  eax: "0x10[32]"
//	memory:
//	  - address: 0x1000
//	    value: "0x1234[16]"
//	  - address: 0x2000
//	    size: 16
//
// A memory entry maps Size bytes, or the size of its value, and writes the
// value if one is given.
func Load(r io.Reader, dict *Dictionary, p *symexpr.Parser) (*State, error) {
	var f stateFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	addressWidth := f.AddressWidth
	if addressWidth == 0 {
		addressWidth = DefaultAddressWidth
	} else if addressWidth > symexpr.MaxWidth {
		return nil, fmt.Errorf("address width %d exceeds %d bits", addressWidth, symexpr.MaxWidth)
	}
	s := NewState(dict, addressWidth)

	switch f.ByteOrder {
	case "", "little":
	case "big":
		s.littleEndian = false
	default:
		return nil, fmt.Errorf("invalid byte order: %q", f.ByteOrder)
	}

	names := make([]string, 0, len(f.Registers))
	for name := range f.Registers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, err := p.Parse(f.Registers[name], "register "+name)
		if err != nil {
			return nil, err
		} else if err := s.SetRegister(name, value); err != nil {
			return nil, err
		}
	}

	for _, m := range f.Memory {
		var value symexpr.Expr
		if m.Value != "" {
			v, err := p.Parse(m.Value, fmt.Sprintf("memory 0x%x", m.Address))
			if err != nil {
				return nil, err
			}
			value = v
		}

		size := m.Size
		if size == 0 && value != nil {
			size = uint64(symexpr.ExprWidth(value) / 8)
		}
		if err := s.Map(m.Address, size); err != nil {
			return nil, err
		}
		if value != nil {
			if err := s.WriteMemory(m.Address, value); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Dump returns the registers and memory regions as a string.
func (s *State) Dump() string {
	var buf bytes.Buffer

	fmt.Fprintln(&buf, "== REGISTERS")
	lines := make([]string, 0, len(s.registers))
	for reg, value := range s.registers {
		lines = append(lines, fmt.Sprintf("%s = %s", s.dict.RegisterName(reg), value))
	}
	sort.Strings(lines)
	for _, line := range lines {
		fmt.Fprintln(&buf, line)
	}
	fmt.Fprintln(&buf, "")

	fmt.Fprintln(&buf, "== MEMORY")
	itr := s.regions.Iterator()
	for !itr.Done() {
		k, v := itr.Next()
		r := v.(*region)
		fmt.Fprintf(&buf, "0x%08x +%d %s\n", k.(uint64), r.size, r.array.String())
		for upd := r.array.Updates; upd != nil; upd = upd.Next {
			fmt.Fprintf(&buf, "  + UPD: I=%s; V=%s\n", upd.Index.String(), upd.Value.String())
		}
	}
	return buf.String()
}

// uint64Comparer compares two 64-bit unsigned integers. Implements immutable.Comparer.
type uint64Comparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a uint64.
func (c *uint64Comparer) Compare(a, b interface{}) int {
	if i, j := a.(uint64), b.(uint64); i < j {
		return -1
	} else if i > j {
		return 1
	}
	return 0
}
