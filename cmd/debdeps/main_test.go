package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/debdeps/pkg/sumfile"
	"lab47.dev/debdeps/pkg/verify"
)

func TestSaveSums(t *testing.T) {
	dir, err := ioutil.TempDir("", "debdeps")
	require.NoError(t, err)

	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "sums")

	results := []*verify.Result{
		{Package: "libc6", Outcome: verify.Match, Remote: "0123456789abcdef0123456789abcdef"},
		{Package: "mawk", Outcome: verify.Failed, Status: 404},
	}

	require.NoError(t, saveSums(path, results))

	results = []*verify.Result{
		{Package: "gawk", Outcome: verify.NoChecksum, Remote: "fedcba9876543210fedcba9876543210"},
	}

	require.NoError(t, saveSums(path, results))

	f, err := os.Open(path)
	require.NoError(t, err)

	defer f.Close()

	var sf sumfile.Sumfile
	require.NoError(t, sf.Load(f))

	assert.Equal(t, 2, sf.Len())

	ent, ok := sf.Lookup("libc6")
	require.True(t, ok)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", ent.Hex())

	_, ok = sf.Lookup("mawk")
	assert.False(t, ok)

	assert.Equal(t, 1, countBad([]*verify.Result{
		{Outcome: verify.Match},
		{Outcome: verify.Mismatch},
		{Outcome: verify.NoChecksum},
	}))
}
