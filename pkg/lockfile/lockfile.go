package lockfile

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
)

// DefaultPoll is how often a contended lock is retried.
const DefaultPoll = time.Second

// Lock is an exclusive lock represented by the existence of a file.
type Lock struct {
	path string
}

// Take creates path exclusively, retrying every poll until it succeeds or
// ctx is done. waiting, when set, is called before each retry.
func Take(ctx context.Context, path string, poll time.Duration, waiting func()) (*Lock, error) {
	if poll <= 0 {
		poll = DefaultPoll
	}

	tk := time.NewTicker(poll)
	defer tk.Stop()

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			f.Close()
			return &Lock{path: path}, nil
		}

		if !os.IsExist(err) {
			return nil, errors.Wrapf(err, "taking lock %s", path)
		}

		if waiting != nil {
			waiting()
		}

		select {
		case <-tk.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Release removes the lock file. Releasing twice is harmless.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}
