// Package command parses request frames and holds the fixed response texts
// of the BOX protocol.
package command

import "strings"

// Keyword identifies a request. Keywords are case-sensitive.
type Keyword string

const (
	List   Keyword = "LIST"
	Get    Keyword = "GET"
	Put    Keyword = "PUT"
	Delete Keyword = "DELETE"
	Info   Keyword = "INFO"
	Quit   Keyword = "QUIT"
)

// Keywords lists every recognized keyword in help order.
var Keywords = []Keyword{List, Get, Put, Delete, Info, Quit}

// Valid reports whether k is a recognized keyword.
func (k Keyword) Valid() bool {
	switch k {
	case List, Get, Put, Delete, Info, Quit:
		return true
	}
	return false
}

// TakesFilename reports whether the keyword expects a filename argument.
func (k Keyword) TakesFilename() bool {
	switch k {
	case Get, Put, Delete, Info:
		return true
	}
	return false
}

// Request is a decoded request frame.
type Request struct {
	Keyword  Keyword
	Filename string // empty when the argument was omitted
}

// Parse splits a frame on whitespace into a keyword and an optional
// filename. Tokens after the filename are ignored. ok is false when the
// keyword is not recognized, including for an empty frame.
func Parse(frame string) (req Request, ok bool) {
	fields := strings.Fields(frame)
	if len(fields) == 0 {
		return Request{}, false
	}

	req.Keyword = Keyword(fields[0])
	if !req.Keyword.Valid() {
		return req, false
	}
	if len(fields) > 1 && req.Keyword.TakesFilename() {
		req.Filename = fields[1]
	}
	return req, true
}

// String renders the request as it travels on the wire.
func (r Request) String() string {
	if r.Filename == "" {
		return string(r.Keyword)
	}
	return string(r.Keyword) + " " + r.Filename
}

// Fixed response texts.
const (
	RespInvalidCommand = "Invalid command.\n"
	RespClosing        = "Connection closing..."
	RespInvalidName    = "Invalid client name.\n"

	RespListHeader = "Files in directory: "
	RespListEmpty  = "Directory is empty.\n"
	RespListFailed = "Failed to list storage due to a filesystem error.\n"

	RespGetReady  = "Sending file.\n"
	RespGetFailed = "Failed to open file.\n"

	RespPutOK       = "File received successfully.\n"
	RespPutFailed   = "Failed to create file.\n"
	RespPutTooLarge = "File too large.\n"

	RespDeleteOK     = "File deleted successfully.\n"
	RespDeleteFailed = "Failed to delete file.\n"

	RespInfoNotFound = "File does not exist.\n"
)

// InfoTimeLayout formats modification times in INFO responses.
const InfoTimeLayout = "2006-01-02 15:04:05"
