// Package codec implements AniDB's UDP wire grammar: command encoding,
// response line parsing, and reassembly of fragmented responses. The
// type shapes (Marshal/Unmarshal/Validate-style methods) are grounded
// on pkg/wire/frame.go; the grammar itself is new, since the teacher's
// wire format is CBOR and AniDB's is a flat text command line.
package codec

import (
	"strings"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// Command is a single AniDB request: a name and an ordered or
// unordered set of key=value parameters.
type Command struct {
	Name   string
	Params []Param
}

// Param is one key=value pair. Order matters only for AUTH (§4.7);
// other commands may list params in any order without changing the
// resulting datagram's meaning, but Marshal always emits params in
// the order given so callers who care (AUTH) control it directly.
type Param struct {
	Key   string
	Value string
}

// NewCommand builds a Command with the given name and no parameters.
func NewCommand(name string) *Command {
	return &Command{Name: name}
}

// With appends a parameter and returns the command for chaining.
func (c *Command) With(key, value string) *Command {
	c.Params = append(c.Params, Param{Key: key, Value: value})
	return c
}

// escapeAmp escapes a literal "&" in a parameter value as "&amp;" per
// spec §4.7; every other character is transmitted as UTF-8 unchanged.
func escapeAmp(v string) string {
	if !strings.Contains(v, "&") {
		return v
	}
	return strings.ReplaceAll(v, "&", "&amp;")
}

// Marshal encodes the command as "NAME key=value&key=value...".
func (c *Command) Marshal() []byte {
	var b strings.Builder
	b.WriteString(c.Name)
	if len(c.Params) > 0 {
		b.WriteByte(' ')
		for i, p := range c.Params {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(p.Key)
			b.WriteByte('=')
			b.WriteString(escapeAmp(p.Value))
		}
	}
	return []byte(b.String())
}

// AuthParamOrder is the fixed parameter order the AUTH command must
// use per spec §4.7: user, pass, protover, client, clientver, then the
// optional params in this order when present.
var AuthParamOrder = []string{"user", "pass", "protover", "client", "clientver", "nat", "comp", "enc", "mtu", "imgserver"}

// NewAuthCommand builds an AUTH command with its parameters in the
// fixed wire order, dropping any optional key not present in params.
func NewAuthCommand(params map[string]string) *Command {
	cmd := NewCommand("AUTH")
	for _, key := range AuthParamOrder {
		if v, ok := params[key]; ok {
			cmd.With(key, v)
		}
	}
	return cmd
}

// RawResponse is a parsed, but not yet semantically interpreted,
// server reply: the leading numeric code, the remainder of the first
// line, and the pipe-separated field records of subsequent lines.
type RawResponse struct {
	Code    int
	Message string
	Lines   [][]string // each subsequent line split on "|"
}

// ParseResponse splits a decompressed, reassembled response body into
// its code, message, and data lines, per spec §6: "Response code is
// the first whitespace token; the remainder is the message line;
// subsequent lines are |-separated field records."
func ParseResponse(body []byte) (*RawResponse, error) {
	text := strings.TrimRight(string(body), "\r\n")
	if text == "" {
		return nil, errs.New(errs.ProtocolInvalidResponse, "empty response body")
	}
	rows := strings.Split(text, "\n")
	first := strings.TrimSpace(rows[0])

	sp := strings.IndexByte(first, ' ')
	var codeStr, message string
	if sp < 0 {
		codeStr, message = first, ""
	} else {
		codeStr, message = first[:sp], first[sp+1:]
	}

	code, err := parseCode(codeStr)
	if err != nil {
		return nil, errs.Wrap(errs.ProtocolInvalidResponse, "malformed response code: "+codeStr, err)
	}

	resp := &RawResponse{Code: code, Message: message}
	for _, row := range rows[1:] {
		if row == "" {
			continue
		}
		resp.Lines = append(resp.Lines, strings.Split(row, "|"))
	}
	return resp, nil
}

func parseCode(s string) (int, error) {
	if len(s) != 3 {
		return 0, errs.Newf(errs.ProtocolInvalidResponse, "response code %q is not 3 digits", s)
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, errs.Newf(errs.ProtocolInvalidResponse, "response code %q is not numeric", s)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
