package cpu

// execute decodes and runs one unprefixed opcode. The decomposition follows
// the conventional x/y/z/p/q opcode matrix; SM83 replaces several Z80 rows
// (EX, EXX, DJNZ, IX/IY) with GB-specific loads and leaves those encodings
// undefined, which falls out of this table without a special case.
func (c *CPU) execute(opcode uint8) {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		c.executeX0(opcode, y, z, p, q)
	case 1:
		if z == 6 && y == 6 {
			c.Halted = true
			return
		}
		c.setR8(y, c.r8(z))
	case 2:
		c.aluOp(y, c.r8(z))
	case 3:
		c.executeX3(opcode, y, z, p, q)
	}
}

func (c *CPU) aluOp(y uint8, operand uint8) {
	switch y {
	case 0:
		c.A = c.add8(c.A, operand, false)
	case 1:
		c.A = c.add8(c.A, operand, c.getFlag(FlagC))
	case 2:
		c.A = c.sub8(c.A, operand, false)
	case 3:
		c.A = c.sub8(c.A, operand, c.getFlag(FlagC))
	case 4:
		c.A = c.and8(c.A, operand)
	case 5:
		c.A = c.xor8(c.A, operand)
	case 6:
		c.A = c.or8(c.A, operand)
	case 7:
		c.sub8(c.A, operand, false) // CP: discard result, flags only
	}
}

func (c *CPU) executeX0(opcode uint8, y, z, p, q uint8) {
	switch z {
	case 0:
		switch {
		case y == 0: // NOP
		case y == 1: // LD (nn),SP
			addr := c.fetch16()
			c.writeByte(addr, uint8(c.SP))
			c.writeByte(addr+1, uint8(c.SP>>8))
		case y == 2: // STOP
		case y == 3: // JR d
			d := int8(c.fetch())
			c.tick()
			c.PC = uint16(int32(c.PC) + int32(d))
		default: // JR cc,d  (y = 4..7, cc index y-4)
			d := int8(c.fetch())
			if c.cond(y - 4) {
				c.tick()
				c.PC = uint16(int32(c.PC) + int32(d))
			}
		}
	case 1:
		if q == 0 { // LD rp[p],nn
			c.setRP(p, c.fetch16())
		} else { // ADD HL,rp[p]
			c.tick()
			c.addHL(c.rp(p))
		}
	case 2:
		addr := c.hl()
		switch {
		case q == 0 && p == 0: // LD (BC),A
			c.writeByte(c.bc(), c.A)
		case q == 0 && p == 1: // LD (DE),A
			c.writeByte(c.de(), c.A)
		case q == 0 && p == 2: // LD (HL+),A
			c.writeByte(addr, c.A)
			c.setHL(addr + 1)
		case q == 0 && p == 3: // LD (HL-),A
			c.writeByte(addr, c.A)
			c.setHL(addr - 1)
		case q == 1 && p == 0: // LD A,(BC)
			c.A = c.readByte(c.bc())
		case q == 1 && p == 1: // LD A,(DE)
			c.A = c.readByte(c.de())
		case q == 1 && p == 2: // LD A,(HL+)
			c.A = c.readByte(addr)
			c.setHL(addr + 1)
		case q == 1 && p == 3: // LD A,(HL-)
			c.A = c.readByte(addr)
			c.setHL(addr - 1)
		}
	case 3:
		if q == 0 { // INC rp[p]
			c.tick()
			c.setRP(p, c.rp(p)+1)
		} else { // DEC rp[p]
			c.tick()
			c.setRP(p, c.rp(p)-1)
		}
	case 4: // INC r[y]
		c.setR8(y, c.inc8(c.r8(y)))
	case 5: // DEC r[y]
		c.setR8(y, c.dec8(c.r8(y)))
	case 6: // LD r[y],n
		c.setR8(y, c.fetch())
	case 7:
		switch y {
		case 0: // RLCA
			c.A = c.rlc(c.A)
			c.setFlag(FlagZ, false)
		case 1: // RRCA
			c.A = c.rrc(c.A)
			c.setFlag(FlagZ, false)
		case 2: // RLA
			c.A = c.rl(c.A)
			c.setFlag(FlagZ, false)
		case 3: // RRA
			c.A = c.rr(c.A)
			c.setFlag(FlagZ, false)
		case 4: // DAA
			c.daa()
		case 5: // CPL
			c.A = ^c.A
			c.setFlag(FlagN, true)
			c.setFlag(FlagH, true)
		case 6: // SCF
			c.setFlag(FlagN, false)
			c.setFlag(FlagH, false)
			c.setFlag(FlagC, true)
		case 7: // CCF
			c.setFlag(FlagN, false)
			c.setFlag(FlagH, false)
			c.setFlag(FlagC, !c.getFlag(FlagC))
		}
	}
}

func (c *CPU) rp2(p uint8) uint16 {
	if p == 3 {
		return c.af()
	}
	return c.rp(p)
}

func (c *CPU) setRP2(p uint8, v uint16) {
	if p == 3 {
		c.setAF(v)
		return
	}
	c.setRP(p, v)
}

func (c *CPU) executeX3(opcode uint8, y, z, p, q uint8) {
	switch z {
	case 0:
		switch {
		case y <= 3: // RET cc[y]
			c.tick()
			if c.cond(y) {
				c.PC = c.pop16()
				c.tick()
			}
		case y == 4: // LD (FF00+n),A
			n := c.fetch()
			c.writeByte(0xFF00+uint16(n), c.A)
		case y == 5: // ADD SP,d
			d := int8(c.fetch())
			c.tick()
			c.tick()
			c.SP = c.addSPSigned(d)
		case y == 6: // LD A,(FF00+n)
			n := c.fetch()
			c.A = c.readByte(0xFF00 + uint16(n))
		case y == 7: // LD HL,SP+d
			d := int8(c.fetch())
			c.tick()
			c.setHL(c.addSPSigned(d))
		}
	case 1:
		if q == 0 { // POP rp2[p]
			c.setRP2(p, c.pop16())
			return
		}
		switch p {
		case 0: // RET
			c.PC = c.pop16()
			c.tick()
		case 1: // RETI
			c.PC = c.pop16()
			c.tick()
			c.IME = true
			c.eiPending = false
		case 2: // JP HL
			c.PC = c.hl()
		case 3: // LD SP,HL
			c.tick()
			c.SP = c.hl()
		}
	case 2:
		switch {
		case y <= 3: // JP cc[y],nn
			addr := c.fetch16()
			if c.cond(y) {
				c.tick()
				c.PC = addr
			}
		case y == 4: // LD (FF00+C),A
			c.writeByte(0xFF00+uint16(c.C), c.A)
		case y == 5: // LD (nn),A
			addr := c.fetch16()
			c.writeByte(addr, c.A)
		case y == 6: // LD A,(FF00+C)
			c.A = c.readByte(0xFF00 + uint16(c.C))
		case y == 7: // LD A,(nn)
			addr := c.fetch16()
			c.A = c.readByte(addr)
		}
	case 3:
		switch y {
		case 0: // JP nn
			addr := c.fetch16()
			c.tick()
			c.PC = addr
		case 1: // CB prefix
			cb := c.fetch()
			c.executeCB(cb)
		case 6: // DI
			c.IME = false
			c.eiPending = false
		case 7: // EI
			c.eiPending = true
		default: // D3 DB DD E3 E4 EB EC ED F4 FC FD: undefined, no-op
		}
	case 4:
		if y <= 3 { // CALL cc[y],nn
			addr := c.fetch16()
			if c.cond(y) {
				c.tick()
				c.push16(c.PC)
				c.PC = addr
			}
		}
		// y = 4..7: undefined, no-op
	case 5:
		if q == 0 { // PUSH rp2[p]
			c.tick()
			c.push16(c.rp2(p))
			return
		}
		if p == 0 { // CALL nn
			addr := c.fetch16()
			c.tick()
			c.push16(c.PC)
			c.PC = addr
		}
		// p = 1..3: undefined, no-op
	case 6: // ALU[y] A,n
		c.aluOp(y, c.fetch())
	case 7: // RST y*8
		c.tick()
		c.push16(c.PC)
		c.PC = uint16(y) * 8
	}
}
