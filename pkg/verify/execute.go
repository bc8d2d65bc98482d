package verify

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"lab47.dev/debdeps/pkg/progress"
)

type completion struct {
	key    uint64
	url    string
	status int
	body   string
	err    error
}

// Execute runs every queued request concurrently and blocks until all of
// them have completed or failed. A failed request is reported as a Failed
// result and does not affect the others. The queue is empty afterwards,
// including when ctx is cancelled part way through.
func (v *Verifier) Execute(ctx context.Context) ([]*Result, error) {
	pending := v.pending
	keys := v.keys

	v.pending = nil
	v.keys = make(map[uint64]target)

	if len(pending) == 0 {
		return nil, nil
	}

	v.L.Debug("executing verifications", "count", len(pending), "server", v.server)

	// Buffered so senders never block, even if we stop receiving early.
	ch := make(chan completion, len(pending))

	go func() {
		var g errgroup.Group
		g.SetLimit(v.concurrency)

		for _, req := range pending {
			req := req
			g.Go(func() error {
				ch <- v.fetch(ctx, req)
				return nil
			})
		}

		g.Wait()
		close(ch)
	}()

	bar := progress.Count(ctx, len(pending), "verifying")
	defer bar.Close()

	tk := time.NewTicker(v.pollInterval)
	defer tk.Stop()

	var (
		results  []*Result
		inFlight = len(pending)
	)

	for inFlight > 0 {
		select {
		case c, ok := <-ch:
			if !ok {
				inFlight = 0
				continue
			}

			inFlight--

			res := v.correlate(c, keys)
			results = append(results, res)

			bar.On(res.Package)
			bar.Tick()

			if v.Reporter != nil {
				v.Reporter.Verified(res)
			}
		case <-tk.C:
			v.L.Debug("waiting on verification requests", "in-flight", inFlight)
		case <-ctx.Done():
			v.L.Warn("verification cancelled, requests left unreported",
				"unreported", inFlight, "completed", len(results), "error", ctx.Err())

			return results, ctx.Err()
		}
	}

	return results, nil
}

func (v *Verifier) fetch(ctx context.Context, req request) completion {
	c := completion{key: req.key, url: req.url}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	hreq, err := http.NewRequestWithContext(ctx, "GET", req.url, nil)
	if err != nil {
		c.err = err
		return c
	}

	if v.userAgent != "" {
		hreq.Header.Set("User-Agent", v.userAgent)
	}

	v.L.Trace("dispatching", "url", req.url)

	resp, err := v.client.Do(hreq)
	if err != nil {
		c.err = err
		return c
	}

	defer resp.Body.Close()

	c.status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, resp.Body)
		c.err = errors.Wrapf(ErrUnexpectedStatus, "%d", resp.StatusCode)
		return c
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		c.err = errors.Wrap(err, "reading response body")
		return c
	}

	c.body = string(data)

	return c
}

func (v *Verifier) correlate(c completion, keys map[uint64]target) *Result {
	tgt, ok := keys[c.key]
	if !ok {
		// Keys are only ever created alongside their request.
		panic("verification completed for unknown key")
	}

	res := &Result{
		Package: tgt.name,
		Version: tgt.version,
		ID:      tgt.id,
		URL:     c.url,
		Status:  c.status,
	}

	if c.err != nil {
		res.Outcome = Failed
		res.Err = c.err

		v.L.Warn("verification request failed",
			"package", tgt.name, "version", tgt.version, "status", c.status, "error", c.err)

		return res
	}

	res.Remote = strings.TrimSpace(c.body)

	expected, ok := v.Catalog.Checksum(tgt.id)
	if !ok {
		res.Outcome = NoChecksum
		return res
	}

	res.Expected = expected

	if res.Remote == expected {
		res.Outcome = Match
	} else {
		res.Outcome = Mismatch
	}

	return res
}
