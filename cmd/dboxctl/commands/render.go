package commands

import (
	"fmt"
	"io"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/internal/cli/output"
	"github.com/marmos91/dittobox/internal/cli/timeutil"
	"github.com/marmos91/dittobox/pkg/client"
)

// ListingTable renders a LIST result.
type ListingTable struct {
	*client.Listing
}

// Headers implements TableRenderer.
func (l ListingTable) Headers() []string {
	return []string{"NAME"}
}

// Rows implements TableRenderer.
func (l ListingTable) Rows() [][]string {
	rows := make([][]string, 0, len(l.Entries))
	for _, name := range l.Entries {
		rows = append(rows, []string{name})
	}
	return rows
}

// FileInfoTable renders an INFO result.
type FileInfoTable struct {
	*client.FileInfo
}

// Headers implements TableRenderer.
func (f FileInfoTable) Headers() []string {
	return []string{"NAME", "SIZE", "BYTES", "MODIFIED"}
}

// Rows implements TableRenderer.
func (f FileInfoTable) Rows() [][]string {
	return [][]string{{
		f.Name,
		bytesize.Human(f.Size),
		fmt.Sprintf("%d", f.Size),
		timeutil.FormatTime(f.ModTime),
	}}
}

// TransferResult is printed after GET and PUT in JSON and YAML output.
type TransferResult struct {
	Direction string `json:"direction" yaml:"direction"`
	Remote    string `json:"remote" yaml:"remote"`
	Local     string `json:"local" yaml:"local"`
	Bytes     int64  `json:"bytes" yaml:"bytes"`
}

func printListing(w io.Writer, format output.Format, listing *client.Listing) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, listing)
	case output.FormatYAML:
		return output.PrintYAML(w, listing)
	}

	_, _ = fmt.Fprintf(w, "Directory: %s\n", listing.Directory)
	if len(listing.Entries) == 0 {
		_, _ = fmt.Fprintln(w, "No files.")
		return nil
	}
	return output.PrintTable(w, ListingTable{listing})
}

func printFileInfo(w io.Writer, format output.Format, info *client.FileInfo) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, info)
	case output.FormatYAML:
		return output.PrintYAML(w, info)
	default:
		return output.PrintTable(w, FileInfoTable{info})
	}
}

func printTransfer(w io.Writer, format output.Format, result TransferResult) error {
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, result)
	case output.FormatYAML:
		return output.PrintYAML(w, result)
	}

	verb := "Downloaded"
	if result.Direction == "upload" {
		verb = "Uploaded"
	}
	_, _ = fmt.Fprintf(w, "%s %s (%s)\n", verb, result.Remote, bytesize.Human(result.Bytes))
	return nil
}
