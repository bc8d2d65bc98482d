package sumfile

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// A sumfile records one checksum per package, one per line:
//
//	md5:<base58 digest> <package>
//
// Entries are kept sorted by package name.

var ErrMalformed = errors.New("malformed sumfile line")

type Entry struct {
	Package string
	Algo    string
	Sum     []byte
}

func (e Entry) Hex() string {
	return hex.EncodeToString(e.Sum)
}

type Sumfile struct {
	entries []Entry
}

func (s *Sumfile) Load(r io.Reader) error {
	br := bufio.NewReader(r)

	for lineno := 1; ; lineno++ {
		line, err := br.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 && trimmed[0] != '#' {
			ent, perr := parseLine(trimmed)
			if perr != nil {
				return errors.Wrapf(perr, "line %d", lineno)
			}

			s.put(ent)
		}

		if err == io.EOF {
			return nil
		}
	}
}

func parseLine(line []byte) (Entry, error) {
	colon := bytes.IndexByte(line, ':')
	space := bytes.IndexByte(line, ' ')

	if colon == -1 || space == -1 || space < colon {
		return Entry{}, ErrMalformed
	}

	b, err := base58.Decode(string(line[colon+1 : space]))
	if err != nil {
		return Entry{}, errors.Wrap(ErrMalformed, err.Error())
	}

	pkg := string(bytes.TrimSpace(line[space+1:]))
	if pkg == "" {
		return Entry{}, ErrMalformed
	}

	return Entry{
		Package: pkg,
		Algo:    string(line[:colon]),
		Sum:     b,
	}, nil
}

func (s *Sumfile) search(pkg string) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].Package >= pkg
	})
}

// put inserts or replaces the entry for ent.Package.
func (s *Sumfile) put(ent Entry) {
	idx := s.search(ent.Package)

	if idx < len(s.entries) && s.entries[idx].Package == ent.Package {
		s.entries[idx] = ent
		return
	}

	s.entries = append(s.entries, Entry{})
	copy(s.entries[idx+1:], s.entries[idx:])
	s.entries[idx] = ent
}

func (s *Sumfile) Add(pkg, algo string, h []byte) string {
	s.put(Entry{Package: pkg, Algo: algo, Sum: h})

	return algo + ":" + base58.Encode(h)
}

// AddHex records a hex encoded digest, as found in index files and on the
// checksum server.
func (s *Sumfile) AddHex(pkg, algo, sum string) error {
	b, err := hex.DecodeString(sum)
	if err != nil {
		return errors.Wrapf(err, "checksum of %s", pkg)
	}

	s.Add(pkg, algo, b)

	return nil
}

func (s *Sumfile) Save(w io.Writer) error {
	for _, ent := range s.entries {
		_, err := fmt.Fprintf(w, "%s:%s %s\n", ent.Algo, base58.Encode(ent.Sum), ent.Package)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Sumfile) Lookup(pkg string) (Entry, bool) {
	idx := s.search(pkg)

	if idx < len(s.entries) && s.entries[idx].Package == pkg {
		return s.entries[idx], true
	}

	return Entry{}, false
}

func (s *Sumfile) Entries() []Entry {
	return s.entries
}

func (s *Sumfile) Len() int {
	return len(s.entries)
}
