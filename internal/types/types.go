package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxPayload is the largest request, in raw bytes, the server will look up.
const MaxPayload = 1024

// Wire responses. Every response is a single newline-terminated line.
const (
	RespExists   = "STRING EXISTS"
	RespNotFound = "STRING NOT FOUND"
	RespOversize = "ERROR: Message exceeds maximum allowed size."
	RespBadUTF8  = "ERROR: Invalid UTF-8 payload."
)

// ErrorResponse formats an error response line without the trailing newline.
func ErrorResponse(format string, v ...interface{}) string {
	return "ERROR: " + fmt.Sprintf(format, v...)
}

// ExistenceResponse maps a lookup result to its wire text.
func ExistenceResponse(found bool) string {
	if found {
		return RespExists
	}
	return RespNotFound
}

// BufferKind selects the precomputed index used in buffer mode.
type BufferKind int

const (
	NoBuffer BufferKind = iota
	NativeExistSet
	LanguageNativeSet
	PrefixTree
	SharedProcessCache
)

var bufferNames = map[BufferKind]string{
	NoBuffer:           "none",
	NativeExistSet:     "exist-set",
	LanguageNativeSet:  "set",
	PrefixTree:         "trie",
	SharedProcessCache: "shared-cache",
}

func (k BufferKind) String() string {
	if name, ok := bufferNames[k]; ok {
		return name
	}
	return fmt.Sprintf("BufferKind(%d)", int(k))
}

// ParseBufferKind accepts a buffer name or one of the legacy numeric
// options (0 exist-set, 1 set, 2 trie, 3 shared-cache). Any other number
// selects NoBuffer.
func ParseBufferKind(s string) (BufferKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return NoBuffer, nil
	}
	for k, name := range bufferNames {
		if name == s {
			return k, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoBuffer, fmt.Errorf("unknown buffer %q", s)
	}
	switch n {
	case 0:
		return NativeExistSet, nil
	case 1:
		return LanguageNativeSet, nil
	case 2:
		return PrefixTree, nil
	case 3:
		return SharedProcessCache, nil
	default:
		return NoBuffer, nil
	}
}

// RequestContext carries one query through the connection pipeline.
type RequestContext struct {
	ConnID   string
	ClientIP string
	Query    string
	Received time.Time
}

// ResponseContext carries the result of a lookup.
type ResponseContext struct {
	Found bool
	Error error
}
