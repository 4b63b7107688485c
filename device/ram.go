package device

import (
	"encoding/binary"
)

// Ram is little-endian read/write memory.
type Ram struct {
	Data []byte
}

var _ Device = (*Ram)(nil)

// NewRam allocates size bytes of memory.
func NewRam(size uint32) *Ram {
	return &Ram{Data: make([]byte, size)}
}

// Reset clears the memory.
func (ram *Ram) Reset() {
	clear(ram.Data)
}

// Size implements Device.
func (ram *Ram) Size() uint32 {
	return uint32(len(ram.Data))
}

// Load implements Device.
func (ram *Ram) Load(offset uint32, size int) (value uint32, err error) {
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = ErrBusFault
		return
	}

	switch size {
	case 1:
		value = uint32(ram.Data[offset])
	case 2:
		value = uint32(binary.LittleEndian.Uint16(ram.Data[offset:]))
	case 4:
		value = binary.LittleEndian.Uint32(ram.Data[offset:])
	default:
		err = ErrAccessSize
	}
	return
}

// Store implements Device.
func (ram *Ram) Store(offset uint32, value uint32, size int) (err error) {
	if uint64(offset)+uint64(size) > uint64(len(ram.Data)) {
		err = ErrBusFault
		return
	}

	switch size {
	case 1:
		ram.Data[offset] = uint8(value)
	case 2:
		binary.LittleEndian.PutUint16(ram.Data[offset:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(ram.Data[offset:], value)
	default:
		err = ErrAccessSize
	}
	return
}

// LoadWords copies instruction or data words into memory at offset.
func (ram *Ram) LoadWords(offset uint32, words []uint32) (err error) {
	for n, word := range words {
		err = ram.Store(offset+uint32(n*4), word, 4)
		if err != nil {
			return
		}
	}
	return
}
