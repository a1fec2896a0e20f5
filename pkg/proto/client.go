// Package proto implements the AniDB UDP protocol client: connection
// state, rate-limited request/response with fragment reassembly,
// session lifecycle, retries, and typed command/response parsing.
package proto

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kraklabs/anidbclient/internal/errs"
	"github.com/kraklabs/anidbclient/pkg/proto/codec"
	"github.com/kraklabs/anidbclient/pkg/proto/transport"
)

// Config tunes a Client. Zero values take the documented defaults, per
// the teacher's Config-struct convention (e.g. swim.Config).
type Config struct {
	Transport     transport.Config
	ClientName    string // registered AniDB client name
	ClientVersion string
	ProtoVer      string // default "3"
	MaxRetries    int    // default 3
	RetryDelay    time.Duration
	RequestTimeout time.Duration
	MinSendGap    time.Duration
	Compression   bool
}

const (
	defaultProtoVer       = "3"
	defaultMaxRetries     = 3
	defaultRetryDelay     = 3 * time.Second
	defaultRequestTimeout = 20 * time.Second
)

func (c Config) protoVer() string {
	if c.ProtoVer == "" {
		return defaultProtoVer
	}
	return c.ProtoVer
}

func (c Config) maxRetries() int {
	if c.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return c.MaxRetries
}

func (c Config) retryDelay() time.Duration {
	if c.RetryDelay <= 0 {
		return defaultRetryDelay
	}
	return c.RetryDelay
}

func (c Config) requestTimeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return c.RequestTimeout
}

// Client is the AniDB protocol client: one connected transport, one
// Session, the global rate limiter, and the fragment assembler.
// Grounded compositionally on pkg/agent/agent.go (a struct holding
// collaborator handles, a state machine, one constructor).
type Client struct {
	connState
	cfg       Config
	tr        transport.Transport
	limiter   *rateLimiter
	session   sessionHolder
	assembler *codec.Assembler

	// sendMu serialises full request/response cycles: AniDB's UDP
	// protocol is strictly one-outstanding-request-at-a-time.
	sendMu sync.Mutex
}

// New constructs a Client that has not yet connected.
func New(cfg Config) *Client {
	return &Client{
		cfg:       cfg,
		tr:        transport.New(cfg.Transport),
		limiter:   newRateLimiter(cfg.MinSendGap),
		assembler: codec.NewAssembler(),
	}
}

// Connect dials the configured server.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)
	if err := c.tr.Connect(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}
	c.setState(StateConnected)
	return nil
}

// Disconnect tears down the transport, clearing the session.
func (c *Client) Disconnect() error {
	c.setState(StateDisconnecting)
	c.session.Clear()
	err := c.tr.Close()
	c.setState(StateDisconnected)
	return err
}

// Session reports the current session, or nil if unauthenticated.
func (c *Client) Session() *Session { return c.session.Get() }

// doRequest sends cmd through the rate limiter and retries transient
// failures with linear backoff, returning the reassembled, decoded
// response. It is the single choke point every typed command goes
// through.
func (c *Client) doRequest(ctx context.Context, cmd *codec.Command) (*codec.RawResponse, error) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.requestTimeout())
	defer cancel()

	var resp *codec.RawResponse
	op := func() error {
		r, err := c.sendOnce(reqCtx, cmd)
		if err != nil {
			if e, ok := errs.As(err); ok && !e.Transient() {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	b := withRetryCap(newLinearBackOff(c.cfg.retryDelay()), uint64(c.cfg.maxRetries()))
	if err := backoff.Retry(op, backoff.WithContext(b, reqCtx)); err != nil {
		return nil, err
	}
	return resp, nil
}

// sendOnce performs one send+receive cycle for cmd: waits on the rate
// limiter, writes the datagram, and loops receiving until the fragment
// assembler reports a complete body.
func (c *Client) sendOnce(ctx context.Context, cmd *codec.Command) (*codec.RawResponse, error) {
	if _, err := c.limiter.Wait(ctx); err != nil {
		return nil, errs.Wrap(errs.Cancelled, "rate limiter wait cancelled", err)
	}

	data := cmd.Marshal()
	if err := c.tr.Send(ctx, data); err != nil {
		return nil, err
	}

	for {
		datagram, err := c.tr.Receive(ctx)
		if err != nil {
			return nil, err
		}
		if c.cfg.Compression {
			if inflated, ierr := codec.Inflate(datagram); ierr == nil {
				datagram = inflated
			}
		}
		body, complete, err := c.assembler.Feed(datagram)
		if err != nil {
			return nil, err
		}
		if complete {
			return codec.ParseResponse(body)
		}
	}
}

// Authenticate sends AUTH and, on success, installs the returned
// session tag. On server-reported failure the session stays cleared
// (spec §4.6: Connected on failure).
func (c *Client) Authenticate(ctx context.Context, user, pass string) (*AuthResult, error) {
	c.setState(StateAuthenticating)

	cmd := codec.NewAuthCommand(map[string]string{
		"user":      user,
		"pass":      pass,
		"protover":  c.cfg.protoVer(),
		"client":    c.cfg.ClientName,
		"clientver": c.cfg.ClientVersion,
	})
	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		c.setState(StateConnected)
		return nil, err
	}
	if classify(resp.Code) != familySuccess {
		c.setState(StateConnected)
		return nil, errorForCode(resp.Code, resp.Message)
	}

	tag := extractSessionTag(resp.Message, resp.Lines)
	c.session.Set(tag)
	c.setState(StateAuthenticated)
	return &AuthResult{SessionTag: tag, NewVersion: resp.Code == CodeLoginAcceptedNewVer}, nil
}

// Logout sends LOGOUT and clears the local session regardless of the
// server's reply, since there is nothing useful to retry.
func (c *Client) Logout(ctx context.Context) error {
	sess := c.session.Get()
	if sess == nil {
		return nil
	}
	cmd := codec.NewCommand("LOGOUT").With("s", sess.Tag)
	_, err := c.doRequest(ctx, cmd)
	c.session.Clear()
	c.connState.clearSession()
	return err
}

// Ping sends PING, which requires no session.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, codec.NewCommand("PING"))
	return err
}

func (c *Client) authedCommand(name string) (*codec.Command, error) {
	sess := c.session.Get()
	if sess == nil {
		return nil, errs.New(errs.ProtocolAuthenticationFailed, "not authenticated")
	}
	return codec.NewCommand(name).With("s", sess.Tag), nil
}

// File looks up a file by (size, ed2k) or by fid.
func (c *Client) File(ctx context.Context, fid int64, size int64, ed2k string) (*FileResult, error) {
	cmd, err := c.authedCommand("FILE")
	if err != nil {
		return nil, err
	}
	if fid != 0 {
		cmd.With("fid", strconv.FormatInt(fid, 10))
	} else {
		cmd.With("size", strconv.FormatInt(size, 10)).With("ed2k", ed2k)
	}
	cmd.With("fmask", DefaultFMask.Hex()).With("amask", DefaultAMask.Hex())

	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch classify(resp.Code) {
	case familySuccess:
		return parseFileResponse(resp)
	case familyNotFound:
		return nil, &NotFound{Code: resp.Code}
	default:
		c.maybeClearOnFatal(resp.Code)
		return nil, errorForCode(resp.Code, resp.Message)
	}
}

func parseFileResponse(resp *codec.RawResponse) (*FileResult, error) {
	if len(resp.Lines) == 0 || len(resp.Lines[0]) < 11 {
		return nil, errs.New(errs.ProtocolInvalidResponse, "malformed FILE response")
	}
	f := resp.Lines[0]
	fr := &FileResult{}
	fr.FileID, _ = strconv.ParseInt(f[0], 10, 64)
	fr.Size, _ = strconv.ParseInt(f[1], 10, 64)
	fr.Ed2k = f[2]
	fr.AnimeID, _ = strconv.ParseInt(f[3], 10, 64)
	fr.EpisodeID, _ = strconv.ParseInt(f[4], 10, 64)
	fr.GroupID, _ = strconv.ParseInt(f[5], 10, 64)
	fr.EpisodeNumber = f[6]
	fr.GroupName = f[7]
	fr.GroupShort = f[8]
	fr.Quality = f[9]
	fr.Codec = f[10]
	return fr, nil
}

// Anime looks up anime metadata by aid.
func (c *Client) Anime(ctx context.Context, aid int64) (*AnimeResult, error) {
	cmd, err := c.authedCommand("ANIME")
	if err != nil {
		return nil, err
	}
	cmd.With("aid", strconv.FormatInt(aid, 10)).With("amask", DefaultAMask.Hex())

	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch classify(resp.Code) {
	case familySuccess:
		return parseAnimeResponse(aid, resp)
	case familyNotFound:
		return nil, &NotFound{Code: resp.Code}
	default:
		c.maybeClearOnFatal(resp.Code)
		return nil, errorForCode(resp.Code, resp.Message)
	}
}

func parseAnimeResponse(aid int64, resp *codec.RawResponse) (*AnimeResult, error) {
	if len(resp.Lines) == 0 || len(resp.Lines[0]) < 4 {
		return nil, errs.New(errs.ProtocolInvalidResponse, "malformed ANIME response")
	}
	f := resp.Lines[0]
	ar := &AnimeResult{AnimeID: aid, RomajiName: f[0], KanjiName: f[1], EnglishName: f[2]}
	ar.EpisodeCount, _ = strconv.Atoi(f[3])
	return ar, nil
}

// Episode looks up episode metadata by eid.
func (c *Client) Episode(ctx context.Context, eid int64) (*EpisodeResult, error) {
	cmd, err := c.authedCommand("EPISODE")
	if err != nil {
		return nil, err
	}
	cmd.With("eid", strconv.FormatInt(eid, 10))

	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch classify(resp.Code) {
	case familySuccess:
		if len(resp.Lines) == 0 || len(resp.Lines[0]) < 3 {
			return nil, errs.New(errs.ProtocolInvalidResponse, "malformed EPISODE response")
		}
		f := resp.Lines[0]
		er := &EpisodeResult{EpisodeID: eid}
		er.AnimeID, _ = strconv.ParseInt(f[0], 10, 64)
		er.Number = f[1]
		er.Title = f[2]
		return er, nil
	case familyNotFound:
		return nil, &NotFound{Code: resp.Code}
	default:
		c.maybeClearOnFatal(resp.Code)
		return nil, errorForCode(resp.Code, resp.Message)
	}
}

// Group looks up release group metadata by gid.
func (c *Client) Group(ctx context.Context, gid int64) (*GroupResult, error) {
	cmd, err := c.authedCommand("GROUP")
	if err != nil {
		return nil, err
	}
	cmd.With("gid", strconv.FormatInt(gid, 10))

	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch classify(resp.Code) {
	case familySuccess:
		if len(resp.Lines) == 0 || len(resp.Lines[0]) < 2 {
			return nil, errs.New(errs.ProtocolInvalidResponse, "malformed GROUP response")
		}
		f := resp.Lines[0]
		return &GroupResult{GroupID: gid, Name: f[0], ShortName: f[1]}, nil
	case familyNotFound:
		return nil, &NotFound{Code: resp.Code}
	default:
		c.maybeClearOnFatal(resp.Code)
		return nil, errorForCode(resp.Code, resp.Message)
	}
}

// MylistAdd adds a file to MyList by hash, per spec §4.10's state=1
// (on HDD), viewed=false default.
func (c *Client) MylistAdd(ctx context.Context, size int64, ed2k string, state int, viewed bool) (*MylistAddResult, error) {
	cmd, err := c.authedCommand("MYLISTADD")
	if err != nil {
		return nil, err
	}
	viewedFlag := "0"
	if viewed {
		viewedFlag = "1"
	}
	cmd.With("size", strconv.FormatInt(size, 10)).
		With("ed2k", ed2k).
		With("state", strconv.Itoa(state)).
		With("viewed", viewedFlag)

	resp, err := c.doRequest(ctx, cmd)
	if err != nil {
		return nil, err
	}
	switch resp.Code {
	case CodeMylistEntryAdded:
		lid := firstFieldAsInt64(resp)
		return &MylistAddResult{Outcome: MylistAdded, Lid: lid}, nil
	case CodeFileAlreadyInMylist, CodeMultipleMylistEntr:
		lid := firstFieldAsInt64(resp)
		return &MylistAddResult{Outcome: MylistAlreadyPresent, Lid: lid}, nil
	case CodeNoSuchFile:
		return &MylistAddResult{Outcome: MylistFileNotFound}, nil
	default:
		c.maybeClearOnFatal(resp.Code)
		return nil, errorForCode(resp.Code, resp.Message)
	}
}

func firstFieldAsInt64(resp *codec.RawResponse) int64 {
	if len(resp.Lines) == 0 || len(resp.Lines[0]) == 0 {
		return 0
	}
	v, _ := strconv.ParseInt(resp.Lines[0][0], 10, 64)
	return v
}

// MylistDel removes a file from MyList by fid (or lid, when fid is 0).
func (c *Client) MylistDel(ctx context.Context, fid, lid int64) error {
	cmd, err := c.authedCommand("MYLISTDEL")
	if err != nil {
		return err
	}
	if lid != 0 {
		cmd.With("lid", strconv.FormatInt(lid, 10))
	} else {
		cmd.With("fid", strconv.FormatInt(fid, 10))
	}

	resp, rErr := c.doRequest(ctx, cmd)
	if rErr != nil {
		return rErr
	}
	if classify(resp.Code) == familySuccess || classify(resp.Code) == familyNotFound {
		return nil
	}
	c.maybeClearOnFatal(resp.Code)
	return errorForCode(resp.Code, resp.Message)
}

// maybeClearOnFatal clears the session when the server indicates it is
// no longer valid, per spec §4.6's "server-forced-logout response: any
// -> Connected (session cleared, requires re-authenticate)."
func (c *Client) maybeClearOnFatal(code int) {
	if fatalSessionCodes[code] {
		c.session.Clear()
		c.connState.clearSession()
	}
}
