package cpu

// executeCB decodes and runs one CB-prefixed opcode: rotates/shifts, BIT,
// RES and SET, each addressable against any of the eight r8 operands.
func (c *CPU) executeCB(opcode uint8) {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7

	switch x {
	case 0: // rotate/shift group
		v := c.r8(z)
		switch y {
		case 0:
			v = c.rlc(v)
		case 1:
			v = c.rrc(v)
		case 2:
			v = c.rl(v)
		case 3:
			v = c.rr(v)
		case 4:
			v = c.sla(v)
		case 5:
			v = c.sra(v)
		case 6:
			v = c.swap(v)
		case 7:
			v = c.srl(v)
		}
		c.setR8(z, v)
	case 1: // BIT y,r[z]
		c.bit(y, c.r8(z))
	case 2: // RES y,r[z]
		c.setR8(z, c.r8(z)&^(1<<y))
	case 3: // SET y,r[z]
		c.setR8(z, c.r8(z)|(1<<y))
	}
}
