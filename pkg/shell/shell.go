package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/loader"
	"lab47.dev/debdeps/pkg/ops"
	"lab47.dev/debdeps/pkg/ui"
	"lab47.dev/debdeps/pkg/verify"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("wrong number of arguments")

	errQuit = errors.New("quit")
)

type Options struct {
	Out      io.Writer
	Color    bool
	CacheDir string
	Logger   hclog.Logger

	// Verify configures the session's verifier. Its Reporter and Logger
	// are set by the session.
	Verify verify.Options
}

// Session runs query commands against one catalog. A Session owns a
// Verifier and must be closed so queued verifications are executed.
type Session struct {
	L        hclog.Logger
	Catalog  *catalog.Catalog
	Loader   *loader.Loader
	Verifier *verify.Verifier
	UI       *ui.UI

	check *ops.DepCheck
	solve *ops.TransitiveSolve
	plan  *ops.PackageCalcInstall
}

func New(cat *catalog.Catalog, opts Options) *Session {
	if cat == nil {
		cat = catalog.New()
	}

	logger := opts.Logger
	if logger == nil {
		logger = hclog.L()
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	u := ui.New(out, opts.Color)

	vopts := opts.Verify
	vopts.Reporter = u
	vopts.Logger = logger.Named("verify")

	s := &Session{
		L:        logger,
		Catalog:  cat,
		Loader:   loader.New(cat, logger.Named("loader")),
		Verifier: verify.New(cat, vopts),
		UI:       u,
		check:    ops.NewDepCheck(cat),
		solve:    ops.NewTransitiveSolve(cat),
		plan:     ops.NewPackageCalcInstall(cat),
	}

	s.Loader.CacheDir = opts.CacheDir

	s.check.SetLogger(logger.Named("deps"))
	s.solve.SetLogger(logger.Named("solve"))
	s.plan.SetLogger(logger.Named("plan"))

	return s
}

// Close executes any verifications still queued.
func (s *Session) Close() error {
	return s.Verifier.Close()
}

type command struct {
	usage    string
	synopsis string
	min, max int
	bind     func(fs *pflag.FlagSet) runFunc
}

type runFunc func(ctx context.Context, s *Session, args []string) error

// simple binds a command that takes no flags.
func simple(fn runFunc) func(*pflag.FlagSet) runFunc {
	return func(*pflag.FlagSet) runFunc {
		return fn
	}
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"load-packages": {
			usage: "FILE|URL", synopsis: "load a Packages index", min: 1, max: 1,
			bind: simple(loadPackages),
		},
		"load-installed": {
			usage: "FILE|URL", synopsis: "load a dpkg status file", min: 1, max: 1,
			bind: simple(loadInstalled),
		},
		"load-sums": {
			usage: "FILE|URL", synopsis: "load md5 checksums from a sumfile", min: 1, max: 1,
			bind: simple(loadSums),
		},
		"package-exists": {
			usage: "PKG", synopsis: "report whether a package is known", min: 1, max: 1,
			bind: simple(packageExists),
		},
		"installed-version": {
			usage: "PKG", synopsis: "show the installed version", min: 1, max: 1,
			bind: simple(installedVersion),
		},
		"available-version": {
			usage: "PKG", synopsis: "show the available version", min: 1, max: 1,
			bind: simple(availableVersion),
		},
		"output-md5": {
			usage: "PKG", synopsis: "show the expected md5sum", min: 1, max: 1,
			bind: simple(outputMD5),
		},
		"deps-available": {
			usage: "PKG", synopsis: "check each dependency against installed versions", min: 1, max: 1,
			bind: simple(depsAvailable),
		},
		"transitive-dep-solution": {
			usage: "PKG", synopsis: "list the transitive dependency closure", min: 1, max: 1,
			bind: simple(transitiveDepSolution),
		},
		"how-to-install": {
			usage: "[--names] PKG", synopsis: "list what must be installed", min: 1, max: 1,
			bind: howToInstall,
		},
		"enq-verify": {
			usage: "PKG [VERSION]", synopsis: "queue a checksum verification", min: 1, max: 2,
			bind: simple(enqVerify),
		},
		"execute": {
			synopsis: "run queued verifications",
			bind:     simple(execute),
		},
		"set-server": {
			usage: "HOST:PORT", synopsis: "change the checksum server", min: 1, max: 1,
			bind: simple(setServer),
		},
		"help": {
			synopsis: "list commands",
			bind:     simple(help),
		},
		"quit": {
			synopsis: "stop reading commands",
			bind: simple(func(context.Context, *Session, []string) error {
				return errQuit
			}),
		},
	}

	commands["exit"] = commands["quit"]
}

// Exec runs a single command line. Blank lines and lines starting with #
// are ignored.
func (s *Session) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}

	name := fields[0]

	c, ok := commands[name]
	if !ok {
		return errors.Wrapf(ErrUnknownCommand, "%s", name)
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(ioutil.Discard)

	run := c.bind(fs)

	if err := fs.Parse(fields[1:]); err != nil {
		return errors.Wrapf(err, "%s", name)
	}

	args := fs.Args()

	if len(args) < c.min || len(args) > c.max {
		return errors.Wrapf(ErrUsage, "usage: %s %s", name, c.usage)
	}

	s.L.Trace("exec", "command", name, "args", args)

	return run(ctx, s, args)
}

// Run executes r line by line until it is exhausted, a quit command is
// read, or a command fails.
func (s *Session) Run(ctx context.Context, r io.Reader) error {
	sc := bufio.NewScanner(r)

	var lineno int

	for sc.Scan() {
		lineno++

		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.Exec(ctx, sc.Text())
		if err == errQuit {
			return nil
		}

		if err != nil {
			return errors.Wrapf(err, "line %d", lineno)
		}
	}

	return sc.Err()
}

func loadPackages(ctx context.Context, s *Session, args []string) error {
	if _, err := s.Loader.LoadPackages(ctx, args[0]); err != nil {
		return err
	}

	s.UI.Count("Packages available", s.Catalog.AvailableCount())

	return nil
}

func loadInstalled(ctx context.Context, s *Session, args []string) error {
	if _, err := s.Loader.LoadInstalled(ctx, args[0]); err != nil {
		return err
	}

	s.UI.Count("Packages installed", s.Catalog.InstalledCount())

	return nil
}

func loadSums(ctx context.Context, s *Session, args []string) error {
	n, err := s.Loader.LoadSums(ctx, args[0])
	if err != nil {
		return err
	}

	s.UI.Count("Checksums loaded", n)

	return nil
}

func packageExists(ctx context.Context, s *Session, args []string) error {
	s.UI.Exists(args[0], s.Catalog.Exists(args[0]))
	return nil
}

func installedVersion(ctx context.Context, s *Session, args []string) error {
	id, ok := s.Catalog.Lookup(args[0])
	if !ok {
		s.UI.NoSuchPackage(args[0])
		return nil
	}

	var val string
	if v, ok := s.Catalog.Installed(id); ok {
		val = v.String()
	}

	s.UI.Value(args[0], "installed version", val)

	return nil
}

func availableVersion(ctx context.Context, s *Session, args []string) error {
	id, ok := s.Catalog.Lookup(args[0])
	if !ok {
		s.UI.NoSuchPackage(args[0])
		return nil
	}

	var val string
	if v, ok := s.Catalog.Available(id); ok {
		val = v.String()
	}

	s.UI.Value(args[0], "available version", val)

	return nil
}

func outputMD5(ctx context.Context, s *Session, args []string) error {
	id, ok := s.Catalog.Lookup(args[0])
	if !ok {
		s.UI.NoSuchPackage(args[0])
		return nil
	}

	sum, _ := s.Catalog.Checksum(id)
	s.UI.Value(args[0], "md5sum", sum)

	return nil
}

// unknown reports err as a missing package when that is what it is, and
// returns any other error.
func (s *Session) unknown(name string, err error) error {
	if errors.Is(err, ops.ErrUnknownPackage) {
		s.UI.NoSuchPackage(name)
		return nil
	}

	return err
}

func depsAvailable(ctx context.Context, s *Session, args []string) error {
	rep, err := s.check.Report(args[0])
	if err != nil {
		return s.unknown(args[0], err)
	}

	s.UI.DependencyReport(rep)

	return nil
}

func transitiveDepSolution(ctx context.Context, s *Session, args []string) error {
	ids, err := s.solve.Solve(args[0])
	if err != nil {
		return s.unknown(args[0], err)
	}

	s.UI.Closure(args[0], s.Catalog.Names(ids))

	return nil
}

func howToInstall(fs *pflag.FlagSet) runFunc {
	names := fs.Bool("names", false, "print only package names")

	return func(ctx context.Context, s *Session, args []string) error {
		plan, err := s.plan.Explain(args[0])
		if err != nil {
			return s.unknown(args[0], err)
		}

		if *names {
			out := make([]string, len(plan))
			for i, ent := range plan {
				out[i] = ent.Name
			}

			fmt.Fprintln(s.UI.Out, strings.Join(out, " "))
			return nil
		}

		s.UI.Plan(args[0], plan)

		return nil
	}
}

func enqVerify(ctx context.Context, s *Session, args []string) error {
	if len(args) == 2 {
		s.Verifier.Enqueue(args[0], args[1])
		return nil
	}

	err := s.Verifier.EnqueueLatest(args[0])
	if errors.Is(err, verify.ErrUnknownPackage) {
		s.UI.NotDefined(args[0])
		return nil
	}

	return err
}

func execute(ctx context.Context, s *Session, args []string) error {
	_, err := s.Verifier.Execute(ctx)
	return err
}

func setServer(ctx context.Context, s *Session, args []string) error {
	s.Verifier.SetServer(args[0])
	return nil
}

func help(ctx context.Context, s *Session, args []string) error {
	var names []string
	for name := range commands {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		c := commands[name]
		fmt.Fprintf(s.UI.Out, "%-24s %s\n", strings.TrimSpace(name+" "+c.usage), c.synopsis)
	}

	return nil
}
