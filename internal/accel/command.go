package accel

type Command interface {
	command()
}

// ClearCommand zeroes the first Words words of Buffer.
type ClearCommand struct {
	Buffer Buffer
	Words  int
}

type DispatchCommand struct {
	Program    Program
	Groups     []BindGroup
	Workgroups [3]uint32
}

type CopyCommand struct {
	Src, Dst Buffer
	Words    int
}

func (ClearCommand) command()    {}
func (DispatchCommand) command() {}
func (CopyCommand) command()     {}

// Encoder records commands for one submission.
type Encoder struct {
	cmds []Command
}

func (e *Encoder) ClearBuffer(b Buffer, words int) {
	e.cmds = append(e.cmds, ClearCommand{Buffer: b, Words: words})
}

func (e *Encoder) Dispatch(p Program, groups []BindGroup, x, y, z uint32) {
	e.cmds = append(e.cmds, DispatchCommand{Program: p, Groups: groups, Workgroups: [3]uint32{x, y, z}})
}

func (e *Encoder) CopyBuffer(src, dst Buffer, words int) {
	e.cmds = append(e.cmds, CopyCommand{Src: src, Dst: dst, Words: words})
}

func (e *Encoder) Finish() []Command {
	cmds := e.cmds
	e.cmds = nil
	return cmds
}

// Validate checks usage flags and sizes the way a real device would reject
// the submission.
func Validate(cmds []Command) error {
	for i, c := range cmds {
		switch c := c.(type) {
		case ClearCommand:
			if !c.Buffer.Usage().Has(UsageCopyDst) {
				return Errorf("command %d: clear target lacks copy-dst usage", i)
			}
			if c.Words < 0 || c.Words > c.Buffer.Words() {
				return Errorf("command %d: clear of %d words exceeds buffer of %d", i, c.Words, c.Buffer.Words())
			}
		case CopyCommand:
			if !c.Src.Usage().Has(UsageCopySrc) || !c.Dst.Usage().Has(UsageCopyDst) {
				return Errorf("command %d: copy needs copy-src source and copy-dst target", i)
			}
			if c.Words < 0 || c.Words > c.Src.Words() || c.Words > c.Dst.Words() {
				return Errorf("command %d: copy of %d words out of bounds", i, c.Words)
			}
		case DispatchCommand:
			if c.Program == nil {
				return Errorf("command %d: dispatch without program", i)
			}
			for _, g := range c.Groups {
				for _, b := range g.Buffers() {
					if !b.Usage().Has(UsageStorage) {
						return Errorf("command %d: bound buffer lacks storage usage", i)
					}
				}
			}
		default:
			return Errorf("command %d: unknown command %T", i, c)
		}
	}
	return nil
}
