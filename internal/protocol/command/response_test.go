package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatListing(t *testing.T) {
	assert.Equal(t, "Files in directory: alice\nDirectory is empty.\n", FormatListing("alice", nil))
	assert.Equal(t, "Files in directory: alice\na.txt\nb.txt\n", FormatListing("alice", []string{"a.txt", "b.txt"}))
}

func TestParseListing(t *testing.T) {
	dir, names, err := ParseListing(FormatListing("bob", []string{"x", "y z"}))
	require.NoError(t, err)
	assert.Equal(t, "bob", dir)
	assert.Equal(t, []string{"x", "y z"}, names)

	dir, names, err = ParseListing(FormatListing("bob", nil))
	require.NoError(t, err)
	assert.Equal(t, "bob", dir)
	assert.Empty(t, names)

	_, _, err = ParseListing(RespListFailed)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestInfoRoundTrip(t *testing.T) {
	mod := time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)
	resp := FormatInfo("notes, Size: 1.txt", 1234, mod)
	assert.Equal(t, "File: notes, Size: 1.txt, Size: 1234 bytes, Last modified: 2024-03-09 14:05:07\n", resp)

	name, size, got, err := ParseInfo(resp)
	require.NoError(t, err)
	assert.Equal(t, "notes, Size: 1.txt", name)
	assert.Equal(t, int64(1234), size)
	assert.True(t, mod.Equal(got))
}

func TestParseInfoMalformed(t *testing.T) {
	for _, resp := range []string{
		RespInfoNotFound,
		"File: a.txt\n",
		"File: a.txt, Size: many bytes, Last modified: 2024-03-09 14:05:07\n",
		"File: a.txt, Size: 3 bytes, Last modified: yesterday\n",
	} {
		_, _, _, err := ParseInfo(resp)
		assert.ErrorIs(t, err, ErrMalformedResponse, resp)
	}
}
