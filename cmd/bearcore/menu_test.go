package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCrlfWriter(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		in  string
		out string
	}){
		{"", ""},
		{"a\n", "a\r\n"},
		{"\n\n", "\r\n\r\n"},
		{"a\r\nb\n", "a\r\nb\r\n"},
	}

	for _, entry := range table {
		var buff bytes.Buffer
		n, err := crlfWriter{&buff}.Write([]byte(entry.in))
		assert.NoError(err)
		assert.Equal(len(entry.in), n)
		assert.Equal(entry.out, buff.String(), entry.in)
	}
}
