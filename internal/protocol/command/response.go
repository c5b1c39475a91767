package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedResponse is returned when a response does not match the
// expected layout.
var ErrMalformedResponse = errors.New("malformed response")

const (
	infoPrefix   = "File: "
	infoSize     = ", Size: "
	infoModified = " bytes, Last modified: "
)

// FormatListing renders a LIST response. An empty names slice produces the
// header followed by RespListEmpty.
func FormatListing(identity string, names []string) string {
	var b strings.Builder
	b.WriteString(RespListHeader)
	b.WriteString(identity)
	b.WriteByte('\n')
	if len(names) == 0 {
		b.WriteString(RespListEmpty)
		return b.String()
	}
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseListing is the inverse of FormatListing.
func ParseListing(resp string) (directory string, names []string, err error) {
	if !strings.HasPrefix(resp, RespListHeader) {
		return "", nil, fmt.Errorf("%w: %q", ErrMalformedResponse, firstLine(resp))
	}
	lines := strings.Split(strings.TrimSuffix(resp, "\n"), "\n")
	directory = strings.TrimPrefix(lines[0], RespListHeader)

	rest := lines[1:]
	if len(rest) == 1 && rest[0]+"\n" == RespListEmpty {
		return directory, []string{}, nil
	}
	names = make([]string, 0, len(rest))
	for _, l := range rest {
		if l != "" {
			names = append(names, l)
		}
	}
	return directory, names, nil
}

// FormatInfo renders a successful INFO response in server local time.
func FormatInfo(name string, size int64, modTime time.Time) string {
	return fmt.Sprintf("%s%s%s%d%s%s\n",
		infoPrefix, name, infoSize, size, infoModified, modTime.Local().Format(InfoTimeLayout))
}

// ParseInfo is the inverse of FormatInfo. The timestamp is interpreted in
// the local time zone.
func ParseInfo(resp string) (name string, size int64, modTime time.Time, err error) {
	line := strings.TrimSuffix(resp, "\n")
	if !strings.HasPrefix(line, infoPrefix) {
		return "", 0, time.Time{}, fmt.Errorf("%w: %q", ErrMalformedResponse, line)
	}
	line = strings.TrimPrefix(line, infoPrefix)

	mi := strings.LastIndex(line, infoModified)
	si := strings.LastIndex(line[:max(mi, 0)], infoSize)
	if mi < 0 || si < 0 {
		return "", 0, time.Time{}, fmt.Errorf("%w: %q", ErrMalformedResponse, resp)
	}

	name = line[:si]
	size, err = strconv.ParseInt(line[si+len(infoSize):mi], 10, 64)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("%w: size: %w", ErrMalformedResponse, err)
	}
	modTime, err = time.ParseInLocation(InfoTimeLayout, line[mi+len(infoModified):], time.Local)
	if err != nil {
		return "", 0, time.Time{}, fmt.Errorf("%w: time: %w", ErrMalformedResponse, err)
	}
	return name, size, modTime, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
