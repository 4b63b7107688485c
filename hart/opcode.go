package hart

import (
	"fmt"
)

// Major opcodes, instruction bits [6:0].
const (
	OP_LOAD     = uint32(0x03)
	OP_MISC_MEM = uint32(0x0f)
	OP_IMM      = uint32(0x13)
	OP_AUIPC    = uint32(0x17)
	OP_STORE    = uint32(0x23)
	OP_REG      = uint32(0x33)
	OP_LUI      = uint32(0x37)
	OP_BRANCH   = uint32(0x63)
	OP_JALR     = uint32(0x67)
	OP_JAL      = uint32(0x6f)
	OP_SYSTEM   = uint32(0x73)
)

// SYSTEM funct3 values.
const (
	F3_PRIV   = uint32(0)
	F3_CSRRW  = uint32(1)
	F3_CSRRS  = uint32(2)
	F3_CSRRC  = uint32(3)
	F3_CSRRWI = uint32(5)
	F3_CSRRSI = uint32(6)
	F3_CSRRCI = uint32(7)
)

// Fixed encodings.
const (
	INSN_NOP    = Insn(0x0000_0013) // addi x0, x0, 0
	INSN_ECALL  = Insn(0x0000_0073)
	INSN_EBREAK = Insn(0x0010_0073)
	INSN_MRET   = Insn(0x3020_0073)
	INSN_WFI    = Insn(0x1050_0073)
)

// Insn is one 32-bit instruction word.
type Insn uint32

func (insn Insn) Opcode() uint32 { return uint32(insn) & 0x7f }
func (insn Insn) Rd() int        { return int(insn>>7) & 0x1f }
func (insn Insn) Funct3() uint32 { return uint32(insn>>12) & 0x7 }
func (insn Insn) Rs1() int       { return int(insn>>15) & 0x1f }
func (insn Insn) Rs2() int       { return int(insn>>20) & 0x1f }
func (insn Insn) Funct7() uint32 { return uint32(insn >> 25) }

// Csr is the CSR address of a Zicsr instruction.
func (insn Insn) Csr() uint16 { return uint16(insn >> 20) }

// Compressed reports whether the low two bits select a 16-bit encoding.
func (insn Insn) Compressed() bool { return insn&0x3 != 0x3 }

// ImmI is the sign-extended I-type immediate.
func (insn Insn) ImmI() int32 {
	return int32(insn) >> 20
}

// ImmS is the sign-extended S-type immediate.
func (insn Insn) ImmS() int32 {
	return (int32(insn)>>25)<<5 | int32(insn>>7)&0x1f
}

// ImmB is the sign-extended B-type branch offset.
func (insn Insn) ImmB() int32 {
	imm := (int32(insn)>>31)<<12 |
		int32(insn>>7)&0x1<<11 |
		int32(insn>>25)&0x3f<<5 |
		int32(insn>>8)&0xf<<1
	return imm
}

// ImmU is the U-type upper immediate, already shifted.
func (insn Insn) ImmU() uint32 {
	return uint32(insn) & 0xffff_f000
}

// ImmJ is the sign-extended J-type jump offset.
func (insn Insn) ImmJ() int32 {
	imm := (int32(insn)>>31)<<20 |
		int32(insn>>12)&0xff<<12 |
		int32(insn>>20)&0x1<<11 |
		int32(insn>>21)&0x3ff<<1
	return imm
}

func reg5(r int) uint32 { return uint32(r) & 0x1f }

// EncodeR encodes an R-type instruction.
func EncodeR(op uint32, rd int, funct3 uint32, rs1, rs2 int, funct7 uint32) Insn {
	return Insn(funct7<<25 | reg5(rs2)<<20 | reg5(rs1)<<15 | funct3<<12 | reg5(rd)<<7 | op)
}

// EncodeI encodes an I-type instruction.
func EncodeI(op uint32, rd int, funct3 uint32, rs1 int, imm int32) Insn {
	return Insn(uint32(imm&0xfff)<<20 | reg5(rs1)<<15 | funct3<<12 | reg5(rd)<<7 | op)
}

// EncodeS encodes an S-type instruction.
func EncodeS(op uint32, funct3 uint32, rs1, rs2 int, imm int32) Insn {
	u := uint32(imm & 0xfff)
	return Insn((u>>5)<<25 | reg5(rs2)<<20 | reg5(rs1)<<15 | funct3<<12 | (u&0x1f)<<7 | op)
}

// EncodeB encodes a B-type instruction.
func EncodeB(op uint32, funct3 uint32, rs1, rs2 int, imm int32) Insn {
	u := uint32(imm)
	return Insn((u>>12&0x1)<<31 | (u>>5&0x3f)<<25 |
		reg5(rs2)<<20 | reg5(rs1)<<15 | funct3<<12 |
		(u>>1&0xf)<<8 | (u>>11&0x1)<<7 | op)
}

// EncodeU encodes a U-type instruction.
func EncodeU(op uint32, rd int, imm uint32) Insn {
	return Insn(imm&0xffff_f000 | reg5(rd)<<7 | op)
}

// EncodeJ encodes a J-type instruction.
func EncodeJ(op uint32, rd int, imm int32) Insn {
	u := uint32(imm)
	return Insn((u>>20&0x1)<<31 | (u>>1&0x3ff)<<21 |
		(u>>11&0x1)<<20 | (u>>12&0xff)<<12 |
		reg5(rd)<<7 | op)
}

// EncodeCsr encodes a Zicsr instruction. For the immediate forms src is the
// 5-bit unsigned immediate, otherwise it is rs1.
func EncodeCsr(funct3 uint32, rd int, src uint32, addr uint16) Insn {
	return Insn(uint32(addr)<<20 | (src&0x1f)<<15 | funct3<<12 | reg5(rd)<<7 | OP_SYSTEM)
}

var regNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of register xn.
func RegName(n int) string {
	if n < 0 || n >= len(regNames) {
		return fmt.Sprintf("x%d", n)
	}
	return regNames[n]
}

var branchNames = map[uint32]string{0: "beq", 1: "bne", 4: "blt", 5: "bge", 6: "bltu", 7: "bgeu"}
var loadNames = map[uint32]string{0: "lb", 1: "lh", 2: "lw", 4: "lbu", 5: "lhu"}
var storeNames = map[uint32]string{0: "sb", 1: "sh", 2: "sw"}
var immNames = map[uint32]string{0: "addi", 1: "slli", 2: "slti", 3: "sltiu", 4: "xori", 5: "srli", 6: "ori", 7: "andi"}
var regOpNames = map[uint32]string{0: "add", 1: "sll", 2: "slt", 3: "sltu", 4: "xor", 5: "srl", 6: "or", 7: "and"}
var mulNames = map[uint32]string{0: "mul", 1: "mulh", 2: "mulhsu", 3: "mulhu", 4: "div", 5: "divu", 6: "rem", 7: "remu"}
var csrNames = map[uint32]string{1: "csrrw", 2: "csrrs", 3: "csrrc", 5: "csrrwi", 6: "csrrsi", 7: "csrrci"}

// String disassembles the instruction, for traces.
func (insn Insn) String() string {
	rd, rs1, rs2 := RegName(insn.Rd()), RegName(insn.Rs1()), RegName(insn.Rs2())
	f3 := insn.Funct3()

	switch insn.Opcode() {
	case OP_LUI:
		return fmt.Sprintf("lui %v, 0x%x", rd, insn.ImmU()>>12)
	case OP_AUIPC:
		return fmt.Sprintf("auipc %v, 0x%x", rd, insn.ImmU()>>12)
	case OP_JAL:
		return fmt.Sprintf("jal %v, %d", rd, insn.ImmJ())
	case OP_JALR:
		return fmt.Sprintf("jalr %v, %d(%v)", rd, insn.ImmI(), rs1)
	case OP_BRANCH:
		if name, ok := branchNames[f3]; ok {
			return fmt.Sprintf("%v %v, %v, %d", name, rs1, rs2, insn.ImmB())
		}
	case OP_LOAD:
		if name, ok := loadNames[f3]; ok {
			return fmt.Sprintf("%v %v, %d(%v)", name, rd, insn.ImmI(), rs1)
		}
	case OP_STORE:
		if name, ok := storeNames[f3]; ok {
			return fmt.Sprintf("%v %v, %d(%v)", name, rs2, insn.ImmS(), rs1)
		}
	case OP_IMM:
		name := immNames[f3]
		if f3 == 5 && insn.Funct7() == 0x20 {
			name = "srai"
		}
		if f3 == 1 || f3 == 5 {
			return fmt.Sprintf("%v %v, %v, %d", name, rd, rs1, insn.Rs2())
		}
		return fmt.Sprintf("%v %v, %v, %d", name, rd, rs1, insn.ImmI())
	case OP_REG:
		name := regOpNames[f3]
		switch insn.Funct7() {
		case 0x01:
			name = mulNames[f3]
		case 0x20:
			switch f3 {
			case 0:
				name = "sub"
			case 5:
				name = "sra"
			}
		}
		return fmt.Sprintf("%v %v, %v, %v", name, rd, rs1, rs2)
	case OP_MISC_MEM:
		return "fence"
	case OP_SYSTEM:
		switch insn {
		case INSN_ECALL:
			return "ecall"
		case INSN_EBREAK:
			return "ebreak"
		case INSN_MRET:
			return "mret"
		case INSN_WFI:
			return "wfi"
		}
		if name, ok := csrNames[f3]; ok {
			if f3 >= F3_CSRRWI {
				return fmt.Sprintf("%v %v, 0x%03x, %d", name, rd, insn.Csr(), insn.Rs1())
			}
			return fmt.Sprintf("%v %v, 0x%03x, %v", name, rd, insn.Csr(), rs1)
		}
	}

	return fmt.Sprintf(".word 0x%08x", uint32(insn))
}
