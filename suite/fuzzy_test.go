package suite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const message = "Hello! RISC-V!\n"

func corrupt(text string, positions ...int) []byte {
	data := []byte(text)
	for _, pos := range positions {
		data[pos] ^= 0x5a
	}
	return data
}

func shift(text string, skew int, size int) (data []byte) {
	switch {
	case skew > 0:
		data = append(repeat(0xff, skew), text...)
	case skew < 0:
		data = []byte(text[-skew:])
	default:
		data = []byte(text)
	}
	for len(data) < size {
		data = append(data, 0)
	}
	return data[:size]
}

func repeat(c byte, n int) (data []byte) {
	for range n {
		data = append(data, c)
	}
	return
}

func TestFuzzyMatch(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name     string
		received []byte
		count    int
		pass     bool
	}){
		{"exact", []byte(message), 15, true},
		{"one glitch", corrupt(message, 7), 14, true},
		{"two glitches", corrupt(message, 1, 9), 13, true},
		{"three glitches", corrupt(message, 1, 5, 9), 12, false},
		{"late by 1", shift(message, 1, 16), 15, true},
		{"late by 2, truncated", shift(message, 2, 16), 14, true},
		{"late by 3, truncated", shift(message, 3, 16), 13, true},
		{"late by 3, read 15", shift(message, 3, 15), 12, false},
		{"early by 2", shift(message, -2, 16), 13, true},
		{"early by 3", shift(message, -3, 16), 12, false},
		{"late by 4", shift(message, 4, 19), 1, false},
		{"empty", nil, 0, false},
	}

	for _, entry := range table {
		count := FuzzyMatch([]byte(message), entry.received, 15)
		assert.Equal(entry.count, count, entry.name)
		assert.Equal(entry.pass, FuzzyPass(count, 15), entry.name)
	}
}

func TestFuzzyMatch_Length(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(5, FuzzyMatch([]byte("Hello"), []byte(message), 15))
	assert.Equal(3, FuzzyMatch([]byte(message), []byte(message), 3))
	assert.True(FuzzyPass(13, 15))
	assert.False(FuzzyPass(12, 15))
}
