package shell

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/debdeps/pkg/verify"
)

const packagesIndex = `Package: app
Version: 1.0-1
Depends: libc6 (>= 2.31), mawk | gawk
MD5sum: 11111111111111111111111111111111

Package: libc6
Version: 2.36-9
MD5sum: 22222222222222222222222222222222

Package: mawk
Version: 1.3.4-3

Package: gawk
Version: 1:5.2.1-2
`

const statusFile = `Package: libc6
Status: install ok installed
Version: 2.31-13
`

type fixture struct {
	dir string
	srv *httptest.Server
	out bytes.Buffer
	s   *Session
}

func newFixture(t *testing.T) *fixture {
	dir, err := ioutil.TempDir("", "shell")
	require.NoError(t, err)

	t.Cleanup(func() { os.RemoveAll(dir) })

	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "Packages"), []byte(packagesIndex), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "status"), []byte(statusFile), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/checksums/app/1.0-1":
			fmt.Fprintln(w, "11111111111111111111111111111111")
		case "/rest/v1/checksums/libc6/2.36-9":
			fmt.Fprint(w, "ffffffffffffffffffffffffffffffff")
		default:
			http.NotFound(w, r)
		}
	}))

	t.Cleanup(srv.Close)

	f := &fixture{dir: dir, srv: srv}

	f.s = New(nil, Options{
		Out:    &f.out,
		Logger: hclog.NewNullLogger(),
		Verify: verify.Options{
			Server: strings.TrimPrefix(srv.URL, "http://"),
		},
	})

	return f
}

func (f *fixture) script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func (f *fixture) load(t *testing.T) {
	err := f.s.Run(context.Background(), strings.NewReader(f.script(
		"load-packages "+filepath.Join(f.dir, "Packages"),
		"load-installed "+filepath.Join(f.dir, "status"),
	)))
	require.NoError(t, err)

	f.out.Reset()
}

func TestLoad(t *testing.T) {
	f := newFixture(t)

	err := f.s.Run(context.Background(), strings.NewReader(f.script(
		"# indexes",
		"",
		"load-packages "+filepath.Join(f.dir, "Packages"),
		"load-installed "+filepath.Join(f.dir, "status"),
	)))
	require.NoError(t, err)

	assert.Equal(t, "Packages available: 4\nPackages installed: 1\n", f.out.String())
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	f.load(t)

	ctx := context.Background()

	t.Run("versions", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(ctx, "installed-version libc6"))
		require.NoError(t, f.s.Exec(ctx, "available-version gawk"))
		require.NoError(t, f.s.Exec(ctx, "installed-version mawk"))
		require.NoError(t, f.s.Exec(ctx, "output-md5 app"))
		require.NoError(t, f.s.Exec(ctx, "package-exists nope"))

		assert.Equal(t, `Package libc6 installed version: 2.31-13
Package gawk available version: 1:5.2.1-2
Package mawk has no installed version
Package app md5sum: 11111111111111111111111111111111
Package nope exists: false
`, f.out.String())
	})

	t.Run("deps-available", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(ctx, "deps-available app"))

		assert.Equal(t, `Package app:
- dependency "libc6 (>= 2.31)"
+ libc6 satisfied by installed version 2.31-13
- dependency "mawk | gawk"
-> not satisfied
`, f.out.String())
	})

	t.Run("unknown package is reported", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(ctx, "deps-available nope"))
		require.NoError(t, f.s.Exec(ctx, "transitive-dep-solution nope"))
		require.NoError(t, f.s.Exec(ctx, "how-to-install nope"))

		assert.Equal(t, strings.Repeat("no such package nope\n", 3), f.out.String())
	})

	t.Run("transitive-dep-solution", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(ctx, "transitive-dep-solution app"))

		assert.Contains(t, f.out.String(), "  libc6\n")
		assert.Contains(t, f.out.String(), "  mawk\n")
		assert.NotContains(t, f.out.String(), "gawk")
	})

	t.Run("how-to-install", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(ctx, "how-to-install --names app"))

		// libc6 is satisfied; of mawk and gawk gawk has the higher version.
		assert.Equal(t, "gawk\n", f.out.String())
	})
}

func TestVerifyCommands(t *testing.T) {
	t.Run("execute reports in the session output", func(t *testing.T) {
		f := newFixture(t)
		f.load(t)

		err := f.s.Run(context.Background(), strings.NewReader(f.script(
			"enq-verify app",
			"execute",
		)))
		require.NoError(t, err)

		out := f.out.String()
		assert.Contains(t, out, "queueing request http://"+strings.TrimPrefix(f.srv.URL, "http://")+"/rest/v1/checksums/app/1.0-1\n")
		assert.Contains(t, out, "verifying app, matches: true\n")
		assert.Equal(t, 0, f.s.Verifier.Pending())
	})

	t.Run("pending requests run on close", func(t *testing.T) {
		f := newFixture(t)
		f.load(t)

		err := f.s.Run(context.Background(), strings.NewReader(f.script(
			"enq-verify libc6",
			"enq-verify mawk 9.9",
		)))
		require.NoError(t, err)

		assert.NotContains(t, f.out.String(), "verifying")

		require.NoError(t, f.s.Close())

		out := f.out.String()
		assert.Contains(t, out, "verifying libc6, matches: false\n")
		assert.Contains(t, out, "got error 404 on request for package mawk version 9.9\n")
	})

	t.Run("unknown package is not queued", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.s.Exec(context.Background(), "enq-verify ghost"))

		assert.Equal(t, "Error: package ghost not defined.\n", f.out.String())
		assert.Equal(t, 0, f.s.Verifier.Pending())
	})

	t.Run("set-server", func(t *testing.T) {
		f := newFixture(t)

		require.NoError(t, f.s.Exec(context.Background(), "set-server example.test:80"))
		assert.Equal(t, "example.test:80", f.s.Verifier.Server())
	})
}

func TestRunErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown command", func(t *testing.T) {
		err := f.s.Run(context.Background(), strings.NewReader("frobnicate\n"))
		assert.True(t, errors.Is(err, ErrUnknownCommand))
		assert.Contains(t, err.Error(), "line 1")
	})

	t.Run("usage", func(t *testing.T) {
		err := f.s.Exec(context.Background(), "deps-available")
		assert.True(t, errors.Is(err, ErrUsage))

		err = f.s.Exec(context.Background(), "enq-verify a b c")
		assert.True(t, errors.Is(err, ErrUsage))
	})

	t.Run("bad flag", func(t *testing.T) {
		err := f.s.Exec(context.Background(), "how-to-install --bogus app")
		assert.Error(t, err)
	})

	t.Run("quit stops the script", func(t *testing.T) {
		f.out.Reset()

		err := f.s.Run(context.Background(), strings.NewReader("package-exists a\nquit\nfrobnicate\n"))
		require.NoError(t, err)

		assert.Equal(t, "Package a exists: false\n", f.out.String())
	})

	t.Run("help", func(t *testing.T) {
		f.out.Reset()

		require.NoError(t, f.s.Exec(context.Background(), "help"))
		assert.Contains(t, f.out.String(), "enq-verify PKG [VERSION]")
	})
}
