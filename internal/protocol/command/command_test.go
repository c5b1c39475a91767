package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Request
		ok    bool
	}{
		{"List", "LIST", Request{Keyword: List}, true},
		{"ListIgnoresArgument", "LIST extra", Request{Keyword: List}, true},
		{"GetWithFile", "GET report.pdf", Request{Keyword: Get, Filename: "report.pdf"}, true},
		{"PutExtraTokensIgnored", "PUT a.txt b.txt c.txt", Request{Keyword: Put, Filename: "a.txt"}, true},
		{"DeleteMissingFilename", "DELETE", Request{Keyword: Delete}, true},
		{"InfoSurroundingSpace", "  INFO \t notes.md  ", Request{Keyword: Info, Filename: "notes.md"}, true},
		{"Quit", "QUIT", Request{Keyword: Quit}, true},
		{"LowercaseRejected", "list", Request{Keyword: "list"}, false},
		{"Unknown", "RENAME a b", Request{Keyword: "RENAME"}, false},
		{"Empty", "", Request{}, false},
		{"Blank", "   ", Request{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.frame)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequestString(t *testing.T) {
	assert.Equal(t, "LIST", Request{Keyword: List}.String())
	assert.Equal(t, "GET a.txt", Request{Keyword: Get, Filename: "a.txt"}.String())
}

func TestKeywordsAreValid(t *testing.T) {
	for _, k := range Keywords {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Keyword("STAT").Valid())
}
