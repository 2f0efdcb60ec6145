package core

// Program is an assembled PBJ program. Instructions keep the order they were
// appended in, which need not be address order.
type Program struct {
	Instructions   []Instruction
	HighestAddress uint16

	byAddress map[uint16]int
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{
		byAddress: make(map[uint16]int),
	}
}

// Append adds an instruction. An instruction whose address is already in use
// is rejected with an ErrDuplicateAddress parse error.
func (p *Program) Append(inst Instruction) error {
	if p.byAddress == nil {
		p.byAddress = make(map[uint16]int)
	}

	if prev, ok := p.byAddress[inst.Address]; ok {
		pe := parseErrorf(ErrDuplicateAddress,
			"already used by instruction %d (%s)", prev+1, p.Instructions[prev])
		pe.Address = int(inst.Address)

		return pe
	}

	p.byAddress[inst.Address] = len(p.Instructions)
	p.Instructions = append(p.Instructions, inst)

	if inst.Address > p.HighestAddress {
		p.HighestAddress = inst.Address
	}

	return nil
}

// Lookup returns the instruction stored at the given address.
func (p *Program) Lookup(addr uint16) (Instruction, bool) {
	idx, ok := p.byAddress[addr]
	if !ok {
		return Instruction{}, false
	}

	return p.Instructions[idx], true
}

// Len returns the number of instructions in the program.
func (p *Program) Len() int {
	return len(p.Instructions)
}

// IsEmpty tells if no instruction has been appended.
func (p *Program) IsEmpty() bool {
	return len(p.Instructions) == 0
}
