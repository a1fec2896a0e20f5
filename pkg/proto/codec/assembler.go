package codec

import (
	"bytes"
	"compress/flate"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/kraklabs/anidbclient/internal/errs"
)

// fragmentTagPrefix marks a response as one part of a multi-datagram
// reply. AniDB encodes this as a leading "tag part/total\n" line ahead
// of the payload; part is 1-indexed.
const fragmentTagPrefix = "@"

// parsedFragment is one datagram's worth of a (possibly fragmented)
// response.
type parsedFragment struct {
	tag    string
	part   int
	total  int
	body   []byte
	isLast bool
}

// parseFragmentHeader inspects a raw received datagram for a fragment
// header of the form "@TAG PART/TOTAL\n<payload>". Datagrams with no
// such header are treated as a single-part response tagged "" with
// part=1, total=1.
func parseFragmentHeader(datagram []byte) parsedFragment {
	if !bytes.HasPrefix(datagram, []byte(fragmentTagPrefix)) {
		return parsedFragment{tag: "", part: 1, total: 1, body: datagram, isLast: true}
	}

	nl := bytes.IndexByte(datagram, '\n')
	if nl < 0 {
		return parsedFragment{tag: "", part: 1, total: 1, body: datagram, isLast: true}
	}
	header := string(datagram[1:nl])
	body := datagram[nl+1:]

	sp := strings.IndexByte(header, ' ')
	if sp < 0 {
		return parsedFragment{tag: "", part: 1, total: 1, body: datagram, isLast: true}
	}
	tag := header[:sp]
	partTotal := header[sp+1:]
	slash := strings.IndexByte(partTotal, '/')
	if slash < 0 {
		return parsedFragment{tag: "", part: 1, total: 1, body: datagram, isLast: true}
	}
	part, errP := strconv.Atoi(partTotal[:slash])
	total, errT := strconv.Atoi(partTotal[slash+1:])
	if errP != nil || errT != nil || part < 1 || total < 1 {
		return parsedFragment{tag: "", part: 1, total: 1, body: datagram, isLast: true}
	}
	return parsedFragment{tag: tag, part: part, total: total, body: body, isLast: part == total}
}

// pending tracks the parts seen so far for one fragmented response tag.
type pending struct {
	total int
	parts map[int][]byte
}

// Assembler buffers fragmented response parts keyed by their tag until
// all parts are present, then returns the concatenation in part order.
// Grounded on pkg/content/fetcher.go's chunk-reassembly-by-offset
// logic, adapted from byte offsets to AniDB's part/total markers.
type Assembler struct {
	mu      sync.Mutex
	buffers map[string]*pending
}

// NewAssembler returns an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{buffers: make(map[string]*pending)}
}

// Feed adds one received datagram to the assembler. It returns the
// complete, concatenated, still-compressed-if-applicable response body
// once every part for its tag has arrived, or ok=false if more parts
// are still outstanding.
func (a *Assembler) Feed(datagram []byte) (body []byte, ok bool, err error) {
	frag := parseFragmentHeader(datagram)
	if frag.total == 1 {
		return frag.body, true, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	p, exists := a.buffers[frag.tag]
	if !exists {
		p = &pending{total: frag.total, parts: make(map[int][]byte)}
		a.buffers[frag.tag] = p
	}
	if frag.total != p.total {
		delete(a.buffers, frag.tag)
		return nil, false, errs.Newf(errs.ProtocolInvalidPacket, "fragment total mismatch for tag %s: %d vs %d", frag.tag, frag.total, p.total)
	}
	p.parts[frag.part] = frag.body

	if len(p.parts) < p.total {
		return nil, false, nil
	}

	delete(a.buffers, frag.tag)
	var out bytes.Buffer
	for i := 1; i <= p.total; i++ {
		out.Write(p.parts[i])
	}
	return out.Bytes(), true, nil
}

// Forget drops any partially assembled state for tag, called when a
// request times out before all fragments arrive (spec §4.7:
// "incomplete responses time out with the request").
func (a *Assembler) Forget(tag string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.buffers, tag)
}

// deflateMagic is the leading byte pattern of a raw deflate stream
// AniDB may send when compression was negotiated in AUTH; there is no
// universal magic for raw deflate, so detection is left to the caller
// (it knows from the AUTH comp=1 flag whether to expect it).

// Inflate decompresses a raw-deflate-compressed response body.
func Inflate(compressed []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.ProtocolInvalidResponse, "deflate decompression failed", err)
	}
	return out, nil
}
