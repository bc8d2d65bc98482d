package verify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/cleanhttp"
)

const (
	DefaultServer       = "localhost:4590"
	DefaultConcurrency  = 16
	DefaultPollInterval = 30 * time.Second
)

var (
	ErrUnknownPackage   = errors.New("package not defined")
	ErrUnexpectedStatus = errors.New("unexpected response status")
)

type Outcome int

const (
	Match Outcome = iota
	Mismatch
	NoChecksum
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Match:
		return "match"
	case Mismatch:
		return "mismatch"
	case NoChecksum:
		return "no-checksum"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the correlated outcome of one verification request.
type Result struct {
	Package string
	Version string
	ID      catalog.PackageID
	URL     string

	Outcome Outcome

	// Status is 0 when the request never got a response.
	Status   int
	Remote   string
	Expected string
	Err      error
}

func (r *Result) Matches() bool {
	return r.Outcome == Match
}

// Reporter receives engine events. Results arrive in completion order.
type Reporter interface {
	Queued(url string)
	Verified(res *Result)
}

type Options struct {
	Server string

	// Concurrency bounds the number of requests in flight.
	Concurrency int

	// PollInterval bounds each wait for a completion while requests are
	// in flight.
	PollInterval time.Duration

	// Timeout is a per-request deadline; 0 means none.
	Timeout time.Duration

	UserAgent string
	Client    *http.Client
	Reporter  Reporter
	Logger    hclog.Logger
}

type target struct {
	name    string
	version string
	id      catalog.PackageID
}

type request struct {
	url string
	key uint64
}

// Verifier queues checksum verification requests and executes them as a
// batch against a checksum server. Pending requests are executed by Close,
// so a Verifier must always be closed.
type Verifier struct {
	L        hclog.Logger
	Catalog  *catalog.Catalog
	Reporter Reporter

	server       string
	concurrency  int
	pollInterval time.Duration
	timeout      time.Duration
	userAgent    string
	client       *http.Client

	nextKey uint64
	pending []request
	keys    map[uint64]target
}

func New(cat *catalog.Catalog, opts Options) *Verifier {
	v := &Verifier{
		L:            opts.Logger,
		Catalog:      cat,
		Reporter:     opts.Reporter,
		server:       opts.Server,
		concurrency:  opts.Concurrency,
		pollInterval: opts.PollInterval,
		timeout:      opts.Timeout,
		userAgent:    opts.UserAgent,
		client:       opts.Client,
		keys:         make(map[uint64]target),
	}

	if v.L == nil {
		v.L = hclog.L()
	}

	if v.server == "" {
		v.server = DefaultServer
	}

	if v.concurrency <= 0 {
		v.concurrency = DefaultConcurrency
	}

	if v.pollInterval <= 0 {
		v.pollInterval = DefaultPollInterval
	}

	if v.client == nil {
		v.client = cleanhttp.NewClient(v.concurrency)
	}

	return v
}

func (v *Verifier) SetServer(addr string) {
	v.server = addr
}

func (v *Verifier) Server() string {
	return v.server
}

// Pending returns the number of queued requests.
func (v *Verifier) Pending() int {
	return len(v.pending)
}

// encode escapes a path component; spaces become %20.
func encode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (v *Verifier) checksumURL(name, version string) string {
	return fmt.Sprintf("http://%s/rest/v1/checksums/%s/%s",
		v.server, encode(name), encode(version))
}

// Enqueue queues a verification of name at version and returns the request
// URL. No network access happens until Execute.
func (v *Verifier) Enqueue(name, version string) string {
	id := v.Catalog.Intern(name)

	u := v.checksumURL(name, version)

	key := v.nextKey
	v.nextKey++

	v.keys[key] = target{name: name, version: version, id: id}
	v.pending = append(v.pending, request{url: u, key: key})

	v.L.Debug("queued verification", "package", name, "version", version, "key", key)

	if v.Reporter != nil {
		v.Reporter.Queued(u)
	}

	return u
}

// EnqueueLatest queues a verification of the available version of name.
func (v *Verifier) EnqueueLatest(name string) error {
	id, ok := v.Catalog.Lookup(name)
	if !ok {
		return errors.Wrapf(ErrUnknownPackage, "package: %s", name)
	}

	ver, ok := v.Catalog.Available(id)
	if !ok {
		return errors.Wrapf(ErrUnknownPackage, "no available version for %s", name)
	}

	v.Enqueue(name, ver.String())

	return nil
}

// Close executes any pending requests.
func (v *Verifier) Close() error {
	if len(v.pending) == 0 {
		return nil
	}

	v.L.Debug("flushing pending verifications", "count", len(v.pending))

	_, err := v.Execute(context.Background())
	return err
}

// With runs fn with a Verifier that is closed on every return path,
// panics included.
func With(cat *catalog.Catalog, opts Options, fn func(v *Verifier) error) (err error) {
	v := New(cat, opts)

	defer func() {
		cerr := v.Close()
		if err == nil {
			err = cerr
		}
	}()

	return fn(v)
}
