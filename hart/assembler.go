// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package hart

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/bearcore/csr"
	"github.com/ezrec/bearcore/trap"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":          "0",
	"MSTATUS_MIE":     fmt.Sprintf("%#x", csr.MSTATUS_MIE),
	"MSTATUS_MPIE":    fmt.Sprintf("%#x", csr.MSTATUS_MPIE),
	"MIE_MSIE":        fmt.Sprintf("%#x", csr.MIE_MSIE),
	"MIE_MTIE":        fmt.Sprintf("%#x", csr.MIE_MTIE),
	"MIE_MEIE":        fmt.Sprintf("%#x", csr.MIE_MEIE),
	"MIP_MSIP":        fmt.Sprintf("%#x", csr.MIP_MSIP),
	"MIP_MTIP":        fmt.Sprintf("%#x", csr.MIP_MTIP),
	"MIP_MEIP":        fmt.Sprintf("%#x", csr.MIP_MEIP),
	"CAUSE_INTERRUPT": fmt.Sprintf("%#x", uint32(trap.CAUSE_INTERRUPT)),
	"FRAME_BYTES":     fmt.Sprintf("%d", trap.FRAME_BYTES),
}

// linkFunc re-encodes a statement once its label is resolved.
type linkFunc func(pc uint32, target uint32) ([]Insn, error)

type fixup struct {
	index int
	label string
	link  linkFunc
}

// Assembler is a macro assembler for RV32IM + Zicsr firmware.
type Assembler struct {
	Verbose bool               // If set, verbosely logs the assembler actions.
	Log     logrus.FieldLogger // Verbose log destination.
	Origin  uint32             // Address of the first word, unless set by .org.

	Statements []Statement // Generated statements.

	predefine map[string]string  // Predefines
	Label     map[string]uint32  // Map of labels to addresses.
	Equate    map[string]string  // Map of equates.
	Macro     map[string]*Macro  // Map of macros.
	fixups    []fixup            // Statements awaiting their label.
	origin    uint32             // Effective origin of this parse.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

func (asm *Assembler) logf(format string, args ...any) {
	if !asm.Verbose {
		return
	}
	log := asm.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.Debugf(format, args...)
}

// regByName maps register names, both xN and ABI, to numbers.
var regByName = func() map[string]int {
	m := map[string]int{"fp": 8}
	for n := range 32 {
		m[fmt.Sprintf("x%d", n)] = n
		m[RegName(n)] = n
	}
	return m
}()

// regOf returns the register named by word.
func (asm *Assembler) regOf(word string) (reg int, err error) {
	if equate, ok := asm.Equate[word]; ok {
		word = equate
	}
	reg, ok := regByName[word]
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// valueOf returns the value of a simple word: a number, equate or label.
func (asm *Assembler) valueOf(word string) (value uint32, err error) {
	if len(word) == 0 {
		err = ErrOpcodeValueMissing
		return
	}
	if equate, ok := asm.Equate[word]; ok {
		word = equate
	}
	if addr, ok := asm.Label[word]; ok {
		value = addr
		return
	}

	invert := false
	if word[0] == '~' {
		invert = true
		word = word[1:]
	}
	v64, err := strconv.ParseInt(word, 0, 33)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}
	if v64 > 0xffffffff || v64 < -int64(0x80000000) {
		err = ErrImmRange
		return
	}
	value = uint32(v64)

	if invert {
		value = ^value
	}

	return
}

// isSymbol reports whether word could be a not yet defined label.
func isSymbol(word string) bool {
	if len(word) == 0 {
		return false
	}
	c := word[0]
	return c == '_' || c == '.' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// csrOf returns the CSR named by word.
func (asm *Assembler) csrOf(word string) (addr csr.Addr, err error) {
	if a, ok := csr.Lookup(word); ok {
		return a, nil
	}
	value, err := asm.valueOf(word)
	if err != nil || value > 0xfff {
		err = ErrCsrInvalid
		return
	}
	addr = csr.Addr(value)
	return
}

// uimmOf returns a 5-bit CSR immediate.
func (asm *Assembler) uimmOf(word string) (uimm csr.Uimm5, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value > uint32(csr.UIMM5_MAX) {
		err = ErrUimmRange
		return
	}
	uimm = csr.Uimm5(value)
	return
}

// immOf returns a 12-bit signed immediate.
func (asm *Assembler) immOf(word string) (imm int32, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	imm = int32(value)
	if imm < -2048 || imm > 2047 {
		err = ErrImmRange
	}
	return
}

var memOperand = regexp.MustCompile(`^(.*)\(([^)]+)\)$`)

// memOf parses "offset(reg)".
func (asm *Assembler) memOf(word string) (imm int32, reg int, err error) {
	match := memOperand.FindStringSubmatch(word)
	if match == nil {
		err = ErrOpcodeValueMissing
		return
	}
	if len(match[1]) > 0 {
		imm, err = asm.immOf(match[1])
		if err != nil {
			return
		}
	}
	reg, err = asm.regOf(match[2])
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint32, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key := range asm.Equate {
		value32, _err := asm.valueOf(key)
		if _err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(int64(value32))
	}
	for key, addr := range asm.Label {
		pred[key] = starlark.MakeInt64(int64(addr))
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = uint32(st_int64)
	return
}

var charLiteral = regexp.MustCompile(`'\\?[^']'`)
var parenExpr = regexp.MustCompile(`\$\([^\$]*\)`)

// splitWords splits an operand list on blanks and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
}

// parseLine parses a single line into instruction words.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = charLiteral.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			switch str[1:] {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "0":
				str = "\000"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = parenExpr.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)
	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = nil
		return
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	for n, word := range words {
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", fmt.Sprintf("%v_%v_", name, asm.currentAddr()))
			words, err = asm.parseLine(line, lineno)
			if err == nil {
				err = asm.emit(words, lineno)
			}
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr is the address of the next generated word.
func (asm *Assembler) currentAddr() uint32 {
	if len(asm.Statements) == 0 {
		return asm.origin
	}

	last := asm.Statements[len(asm.Statements)-1]

	return last.Addr + uint32(len(last.Codes)*4)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Statements = asm.Statements[:0]
	asm.fixups = asm.fixups[:0]
	asm.origin = asm.Origin
	asm.Label = make(map[string]uint32, 16)
	asm.Macro = make(map[string]*Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		asm.logf("%v: %v", lineno, text)

		line = text
		if cut := strings.IndexAny(line, ";#"); cut >= 0 {
			line = line[:cut]
		}
		line = strings.TrimSpace(line)
		words := splitWords(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   words[2:],
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.emit(words, lineno)
		if err != nil {
			return
		}
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for _, fix := range asm.fixups {
		st := &asm.Statements[fix.index]
		target, ok := asm.Label[fix.label]
		if !ok {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			err = ErrLabelMissing(fix.label)
			return
		}
		var codes []Insn
		codes, err = fix.link(st.Addr, target)
		if err != nil {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			return
		}
		copy(st.Codes, codes)
	}

	prog = &Program{
		Origin:     asm.origin,
		Statements: slices.Clone(asm.Statements),
		Labels:     maps.Clone(asm.Label),
	}

	return
}

// emit assembles one line of words and appends the generated statement.
func (asm *Assembler) emit(words []string, lineno int) (err error) {
	if len(words) == 0 {
		return
	}

	addr := asm.currentAddr()

	// .org ADDR
	if words[0] == ".org" {
		if len(words) != 2 {
			err = ErrOpcodeValueMissing
			return
		}
		var org uint32
		org, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		switch {
		case len(asm.Statements) == 0:
			asm.origin = org
		case org < addr:
			err = ErrOriginBackwards
		case org > addr:
			pad := make([]Insn, (org-addr+3)/4)
			asm.Statements = append(asm.Statements, Statement{LineNo: lineno, Addr: addr, Words: words, Codes: pad})
		}
		return
	}

	codes, label, link, err := asm.encode(words, addr)
	if err != nil {
		return
	}

	if len(codes) == 0 {
		return
	}

	if len(label) > 0 {
		if target, ok := asm.Label[label]; ok {
			// Backward reference, resolve now.
			codes, err = link(addr, target)
			if err != nil {
				return
			}
			label = ""
		} else {
			asm.fixups = append(asm.fixups, fixup{index: len(asm.Statements), label: label, link: link})
		}
	}

	asm.Statements = append(asm.Statements, Statement{
		LineNo:    lineno,
		Addr:      addr,
		Words:     slices.Clone(words),
		Codes:     codes,
		LinkLabel: label,
	})

	return
}

var rTypes = map[string](struct{ f3, f7 uint32 }){
	"add": {0, 0x00}, "sub": {0, 0x20}, "sll": {1, 0x00}, "slt": {2, 0x00},
	"sltu": {3, 0x00}, "xor": {4, 0x00}, "srl": {5, 0x00}, "sra": {5, 0x20},
	"or": {6, 0x00}, "and": {7, 0x00},
	"mul": {0, 0x01}, "mulh": {1, 0x01}, "mulhsu": {2, 0x01}, "mulhu": {3, 0x01},
	"div": {4, 0x01}, "divu": {5, 0x01}, "rem": {6, 0x01}, "remu": {7, 0x01},
}

var iTypes = map[string]uint32{"addi": 0, "slti": 2, "sltiu": 3, "xori": 4, "ori": 6, "andi": 7}

var shiftTypes = map[string](struct{ f3, f7 uint32 }){
	"slli": {1, 0x00}, "srli": {5, 0x00}, "srai": {5, 0x20},
}

var loadTypes = map[string]uint32{"lb": 0, "lh": 1, "lw": 2, "lbu": 4, "lhu": 5}
var storeTypes = map[string]uint32{"sb": 0, "sh": 1, "sw": 2}
var branchTypes = map[string]uint32{"beq": 0, "bne": 1, "blt": 4, "bge": 5, "bltu": 6, "bgeu": 7}

var csrTypes = map[string]uint32{
	"csrrw": F3_CSRRW, "csrrs": F3_CSRRS, "csrrc": F3_CSRRC,
	"csrrwi": F3_CSRRWI, "csrrsi": F3_CSRRSI, "csrrci": F3_CSRRCI,
}

// csrPseudo maps the rd-less CSR pseudo-instructions to their full forms.
var csrPseudo = map[string]uint32{
	"csrw": F3_CSRRW, "csrs": F3_CSRRS, "csrc": F3_CSRRC,
	"csrwi": F3_CSRRWI, "csrsi": F3_CSRRSI, "csrci": F3_CSRRCI,
}

var fixedTypes = map[string]Insn{
	"nop":    INSN_NOP,
	"ecall":  INSN_ECALL,
	"ebreak": INSN_EBREAK,
	"mret":   INSN_MRET,
	"wfi":    INSN_WFI,
	"fence":  Insn(0x0ff0_000f),
}

func want(words []string, count int) error {
	switch {
	case len(words) < count:
		return ErrOpcodeValueMissing
	case len(words) > count:
		return ErrOpcodeExtraArgs
	}
	return nil
}

func branchLink(f3 uint32, rs1, rs2 int) linkFunc {
	return func(pc uint32, target uint32) (codes []Insn, err error) {
		offset := int32(target - pc)
		if offset < -4096 || offset > 4094 || offset&1 != 0 {
			err = ErrOffsetRange
			return
		}
		codes = []Insn{EncodeB(OP_BRANCH, f3, rs1, rs2, offset)}
		return
	}
}

func jalLink(rd int) linkFunc {
	return func(pc uint32, target uint32) (codes []Insn, err error) {
		offset := int32(target - pc)
		if offset < -(1<<20) || offset >= 1<<20 || offset&1 != 0 {
			err = ErrOffsetRange
			return
		}
		codes = []Insn{EncodeJ(OP_JAL, rd, offset)}
		return
	}
}

// loadImm is lui+addi for any 32-bit value.
func loadImm(rd int, value uint32) []Insn {
	lo := int32(value<<20) >> 20
	hi := value - uint32(lo)
	return []Insn{
		EncodeU(OP_LUI, rd, hi),
		EncodeI(OP_IMM, rd, 0, rd, lo),
	}
}

func laLink(rd int) linkFunc {
	return func(pc uint32, target uint32) ([]Insn, error) {
		return loadImm(rd, target), nil
	}
}

// encode generates the code for one instruction. When an operand is a label
// not yet known, label is set and link produces the final code later.
func (asm *Assembler) encode(words []string, pc uint32) (codes []Insn, label string, link linkFunc, err error) {
	op := words[0]
	args := words[1:]

	// target resolves a jump or branch destination, which is either a
	// label or a literal pc-relative offset.
	target := func(word string, mk linkFunc) {
		if word == "." {
			codes, err = mk(pc, pc)
			return
		}
		if _, ok := asm.Label[word]; ok || isSymbol(word) {
			if _, isEqu := asm.Equate[word]; !isEqu {
				label = word
				link = mk
				codes = make([]Insn, 1)
				return
			}
		}
		var value uint32
		value, err = asm.valueOf(word)
		if err != nil {
			return
		}
		codes, err = mk(pc, pc+value)
	}

	if code, ok := fixedTypes[op]; ok {
		err = want(args, 0)
		codes = []Insn{code}
		return
	}

	if rt, ok := rTypes[op]; ok {
		if err = want(args, 3); err != nil {
			return
		}
		var rd, rs1, rs2 int
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs1, err = asm.regOf(args[1]); err != nil {
			return
		}
		if rs2, err = asm.regOf(args[2]); err != nil {
			return
		}
		codes = []Insn{EncodeR(OP_REG, rd, rt.f3, rs1, rs2, rt.f7)}
		return
	}

	if f3, ok := iTypes[op]; ok {
		if err = want(args, 3); err != nil {
			return
		}
		var rd, rs1 int
		var imm int32
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs1, err = asm.regOf(args[1]); err != nil {
			return
		}
		if imm, err = asm.immOf(args[2]); err != nil {
			return
		}
		codes = []Insn{EncodeI(OP_IMM, rd, f3, rs1, imm)}
		return
	}

	if st, ok := shiftTypes[op]; ok {
		if err = want(args, 3); err != nil {
			return
		}
		var rd, rs1 int
		var shamt uint32
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs1, err = asm.regOf(args[1]); err != nil {
			return
		}
		if shamt, err = asm.valueOf(args[2]); err != nil {
			return
		}
		if shamt > 31 {
			err = ErrImmRange
			return
		}
		codes = []Insn{EncodeR(OP_IMM, rd, st.f3, rs1, int(shamt), st.f7)}
		return
	}

	if f3, ok := loadTypes[op]; ok {
		if err = want(args, 2); err != nil {
			return
		}
		var rd, rs1 int
		var imm int32
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if imm, rs1, err = asm.memOf(args[1]); err != nil {
			return
		}
		codes = []Insn{EncodeI(OP_LOAD, rd, f3, rs1, imm)}
		return
	}

	if f3, ok := storeTypes[op]; ok {
		if err = want(args, 2); err != nil {
			return
		}
		var rs1, rs2 int
		var imm int32
		if rs2, err = asm.regOf(args[0]); err != nil {
			return
		}
		if imm, rs1, err = asm.memOf(args[1]); err != nil {
			return
		}
		codes = []Insn{EncodeS(OP_STORE, f3, rs1, rs2, imm)}
		return
	}

	if f3, ok := branchTypes[op]; ok {
		if err = want(args, 3); err != nil {
			return
		}
		var rs1, rs2 int
		if rs1, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs2, err = asm.regOf(args[1]); err != nil {
			return
		}
		target(args[2], branchLink(f3, rs1, rs2))
		return
	}

	if f3, ok := csrTypes[op]; ok {
		if err = want(args, 3); err != nil {
			return
		}
		var rd int
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		codes, err = asm.encodeCsr(f3, rd, args[1], args[2])
		return
	}

	if f3, ok := csrPseudo[op]; ok {
		if err = want(args, 2); err != nil {
			return
		}
		codes, err = asm.encodeCsr(f3, 0, args[0], args[1])
		return
	}

	switch op {
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeValueMissing
			return
		}
		for _, arg := range args {
			var value uint32
			value, err = asm.valueOf(arg)
			if err != nil {
				return
			}
			codes = append(codes, Insn(value))
		}
	case "lui", "auipc":
		if err = want(args, 2); err != nil {
			return
		}
		var rd int
		var value uint32
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if value, err = asm.valueOf(args[1]); err != nil {
			return
		}
		if value > 0xfffff {
			err = ErrImmRange
			return
		}
		opcode := OP_LUI
		if op == "auipc" {
			opcode = OP_AUIPC
		}
		codes = []Insn{EncodeU(opcode, rd, value<<12)}
	case "jal":
		switch len(args) {
		case 1:
			target(args[0], jalLink(1))
		case 2:
			var rd int
			if rd, err = asm.regOf(args[0]); err != nil {
				return
			}
			target(args[1], jalLink(rd))
		default:
			err = want(args, 2)
		}
	case "j":
		if err = want(args, 1); err != nil {
			return
		}
		target(args[0], jalLink(0))
	case "call":
		if err = want(args, 1); err != nil {
			return
		}
		target(args[0], jalLink(1))
	case "jalr":
		var rd, rs1 int
		var imm int32
		switch len(args) {
		case 1:
			rd = 1
			rs1, err = asm.regOf(args[0])
		case 2:
			if rd, err = asm.regOf(args[0]); err != nil {
				return
			}
			imm, rs1, err = asm.memOf(args[1])
		default:
			err = want(args, 2)
		}
		if err != nil {
			return
		}
		codes = []Insn{EncodeI(OP_JALR, rd, 0, rs1, imm)}
	case "jr":
		if err = want(args, 1); err != nil {
			return
		}
		var rs1 int
		if rs1, err = asm.regOf(args[0]); err != nil {
			return
		}
		codes = []Insn{EncodeI(OP_JALR, 0, 0, rs1, 0)}
	case "ret":
		err = want(args, 0)
		codes = []Insn{EncodeI(OP_JALR, 0, 0, 1, 0)}
	case "beqz", "bnez":
		if err = want(args, 2); err != nil {
			return
		}
		var rs1 int
		if rs1, err = asm.regOf(args[0]); err != nil {
			return
		}
		f3 := branchTypes["beq"]
		if op == "bnez" {
			f3 = branchTypes["bne"]
		}
		target(args[1], branchLink(f3, rs1, 0))
	case "mv", "not", "neg":
		if err = want(args, 2); err != nil {
			return
		}
		var rd, rs int
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if rs, err = asm.regOf(args[1]); err != nil {
			return
		}
		switch op {
		case "mv":
			codes = []Insn{EncodeI(OP_IMM, rd, 0, rs, 0)}
		case "not":
			codes = []Insn{EncodeI(OP_IMM, rd, 4, rs, -1)}
		case "neg":
			codes = []Insn{EncodeR(OP_REG, rd, 0, 0, rs, 0x20)}
		}
	case "li":
		if err = want(args, 2); err != nil {
			return
		}
		var rd int
		var value uint32
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if value, err = asm.valueOf(args[1]); err != nil {
			return
		}
		if imm := int32(value); imm >= -2048 && imm <= 2047 {
			codes = []Insn{EncodeI(OP_IMM, rd, 0, 0, imm)}
		} else {
			codes = loadImm(rd, value)
		}
	case "la":
		if err = want(args, 2); err != nil {
			return
		}
		var rd int
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		if _, isEqu := asm.Equate[args[1]]; !isEqu && isSymbol(args[1]) {
			label = args[1]
			link = laLink(rd)
			codes = make([]Insn, 2)
			return
		}
		var value uint32
		if value, err = asm.valueOf(args[1]); err != nil {
			return
		}
		codes = loadImm(rd, value)
	case "csrr":
		if err = want(args, 2); err != nil {
			return
		}
		var rd int
		if rd, err = asm.regOf(args[0]); err != nil {
			return
		}
		codes, err = asm.encodeCsr(F3_CSRRS, rd, args[1], "zero")
	default:
		err = ErrOpcodeInvalid
	}

	return
}

// encodeCsr encodes a Zicsr instruction; src is rs1 or the 5-bit immediate.
func (asm *Assembler) encodeCsr(f3 uint32, rd int, csrWord string, src string) (codes []Insn, err error) {
	addr, err := asm.csrOf(csrWord)
	if err != nil {
		return
	}

	var value uint32
	if f3 >= F3_CSRRWI {
		var uimm csr.Uimm5
		uimm, err = asm.uimmOf(src)
		value = uint32(uimm)
	} else {
		var rs1 int
		rs1, err = asm.regOf(src)
		value = uint32(rs1)
	}
	if err != nil {
		return
	}

	codes = []Insn{EncodeCsr(f3, rd, value, uint16(addr))}
	return
}
