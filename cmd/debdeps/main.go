package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"lab47.dev/debdeps/pkg/catalog"
	"lab47.dev/debdeps/pkg/cmd"
	"lab47.dev/debdeps/pkg/config"
	"lab47.dev/debdeps/pkg/shell"
	"lab47.dev/debdeps/pkg/sumfile"
	"lab47.dev/debdeps/pkg/verify"
)

func main() {
	c := cli.NewCLI("debdeps", config.Version)
	c.Args = os.Args[1:]
	c.Commands = map[string]cli.CommandFactory{
		"deps-available": func() (cli.Command, error) {
			return cmd.New(
				"deps-available",
				"Check a package's dependencies against the installed set",
				depsAvailableF,
			), nil
		},
		"transitive-dep-solution": func() (cli.Command, error) {
			return cmd.New(
				"transitive-dep-solution",
				"List every package a package depends on, directly or not",
				transitiveF,
			), nil
		},
		"how-to-install": func() (cli.Command, error) {
			return cmd.New(
				"how-to-install",
				"List the packages to install or upgrade for a package",
				howToInstallF,
			), nil
		},
		"verify": func() (cli.Command, error) {
			return cmd.New(
				"verify",
				"Verify package checksums against the checksum server",
				verifyF,
			), nil
		},
		"script": func() (cli.Command, error) {
			return cmd.New(
				"script",
				"Run query commands from a file or stdin",
				scriptF,
			), nil
		},
		"dump": func() (cli.Command, error) {
			return cmd.New(
				"dump",
				"Dump the catalog entry of a package",
				dumpF,
			), nil
		},
		"config": func() (cli.Command, error) {
			return cmd.New(
				"config",
				"Output the effective configuration",
				configF,
			), nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		log.Println(err)
	}

	os.Exit(exitStatus)
}

// IndexOpts override the index locations from the configuration.
type IndexOpts struct {
	Packages  string `long:"packages" description:"Packages index file or URL"`
	Installed string `long:"installed" description:"dpkg status file or URL"`
	Sums      string `long:"sums" description:"sumfile with md5 checksums"`
}

func loadConfig(ctx context.Context) (*config.Config, hclog.Logger, error) {
	g := cmd.GlobalsFrom(ctx)

	var (
		cfg *config.Config
		err error
	)

	if g.Config != "" {
		cfg, err = config.LoadFile(g.Config)
	} else {
		cfg, err = config.LoadConfig()
	}

	if err != nil {
		return nil, nil, errors.Wrapf(err, "Unable to load configuration")
	}

	level := cfg.LogLevel
	if g.LogLevel != "" {
		level = g.LogLevel
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "debdeps",
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})

	return cfg, logger, nil
}

func newSession(ctx context.Context) (*shell.Session, *config.Config, error) {
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	s := shell.New(catalog.New(), shell.Options{
		Out:      os.Stdout,
		Color:    cfg.Color,
		CacheDir: cfg.CacheDir,
		Logger:   logger,
		Verify:   cfg.VerifyOptions(),
	})

	return s, cfg, nil
}

func pick(flag, def string) string {
	if flag != "" {
		return flag
	}

	return def
}

// openSession loads the configured indexes, with opts taking precedence,
// into a new session.
func openSession(ctx context.Context, opts IndexOpts) (*shell.Session, error) {
	s, cfg, err := newSession(ctx)
	if err != nil {
		return nil, err
	}

	if path := pick(opts.Packages, cfg.Packages); path != "" {
		if _, err := s.Loader.LoadPackages(ctx, path); err != nil {
			return nil, err
		}
	}

	if path := pick(opts.Installed, cfg.Installed); path != "" {
		if _, err := s.Loader.LoadInstalled(ctx, path); err != nil {
			return nil, err
		}
	}

	if path := pick(opts.Sums, cfg.Sums); path != "" {
		if _, err := s.Loader.LoadSums(ctx, path); err != nil {
			return nil, err
		}
	}

	return s, nil
}

type pkgArg struct {
	Package string `positional-arg-name:"package" required:"yes"`
}

// query runs a single session command for the cli subcommands that mirror
// a script command.
func query(ctx context.Context, opts IndexOpts, line string) error {
	s, err := openSession(ctx, opts)
	if err != nil {
		return err
	}

	defer s.Close()

	return s.Exec(ctx, line)
}

func depsAvailableF(ctx context.Context, opts struct {
	IndexOpts

	Pos pkgArg `positional-args:"yes"`
}) error {
	return query(ctx, opts.IndexOpts, "deps-available "+opts.Pos.Package)
}

func transitiveF(ctx context.Context, opts struct {
	IndexOpts

	Pos pkgArg `positional-args:"yes"`
}) error {
	return query(ctx, opts.IndexOpts, "transitive-dep-solution "+opts.Pos.Package)
}

func howToInstallF(ctx context.Context, opts struct {
	IndexOpts

	Names bool `long:"names" description:"print only package names"`

	Pos pkgArg `positional-args:"yes"`
}) error {
	line := "how-to-install "
	if opts.Names {
		line += "--names "
	}

	return query(ctx, opts.IndexOpts, line+opts.Pos.Package)
}

func verifyF(ctx context.Context, opts struct {
	IndexOpts

	Server   string `long:"server" description:"checksum server host:port"`
	SaveSums string `long:"save-sums" description:"write received checksums to this sumfile"`

	Pos struct {
		Packages []string `positional-arg-name:"package[=version]" required:"1"`
	} `positional-args:"yes"`
}) error {
	s, err := openSession(ctx, opts.IndexOpts)
	if err != nil {
		return err
	}

	defer s.Close()

	if opts.Server != "" {
		s.Verifier.SetServer(opts.Server)
	}

	for _, arg := range opts.Pos.Packages {
		if idx := strings.IndexByte(arg, '='); idx != -1 {
			s.Verifier.Enqueue(arg[:idx], arg[idx+1:])
			continue
		}

		if err := s.Verifier.EnqueueLatest(arg); err != nil {
			if errors.Is(err, verify.ErrUnknownPackage) {
				s.UI.NotDefined(arg)
				continue
			}

			return err
		}
	}

	results, err := s.Verifier.Execute(ctx)
	if err != nil {
		return err
	}

	if opts.SaveSums != "" {
		if err := saveSums(opts.SaveSums, results); err != nil {
			return err
		}
	}

	if bad := countBad(results); bad > 0 {
		return errors.Errorf("%d of %d verifications did not match", bad, len(results))
	}

	return nil
}

func countBad(results []*verify.Result) int {
	var n int

	for _, res := range results {
		if res.Outcome == verify.Mismatch || res.Outcome == verify.Failed {
			n++
		}
	}

	return n
}

func saveSums(path string, results []*verify.Result) error {
	var sf sumfile.Sumfile

	if f, err := os.Open(path); err == nil {
		err = sf.Load(f)
		f.Close()

		if err != nil {
			return err
		}
	}

	for _, res := range results {
		if res.Remote == "" {
			continue
		}

		if err := sf.AddHex(res.Package, "md5", res.Remote); err != nil {
			return errors.Wrapf(err, "checksum for %s", res.Package)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	defer f.Close()

	return sf.Save(f)
}

func scriptF(ctx context.Context, opts struct {
	IndexOpts

	NoLoad bool `long:"no-load" description:"start with an empty catalog"`

	Pos struct {
		File string `positional-arg-name:"file"`
	} `positional-args:"yes"`
}) error {
	var r io.Reader = os.Stdin

	if opts.Pos.File != "" && opts.Pos.File != "-" {
		f, err := os.Open(opts.Pos.File)
		if err != nil {
			return err
		}

		defer f.Close()

		r = f
	}

	var (
		s   *shell.Session
		err error
	)

	if opts.NoLoad {
		s, _, err = newSession(ctx)
	} else {
		s, err = openSession(ctx, opts.IndexOpts)
	}

	if err != nil {
		return err
	}

	err = s.Run(ctx, r)

	cerr := s.Close()
	if err == nil {
		err = cerr
	}

	return err
}

type entry struct {
	ID           catalog.PackageID
	Name         string
	Installed    string
	Available    string
	MD5sum       string
	Dependencies []string
}

func dumpF(ctx context.Context, opts struct {
	IndexOpts

	Pos pkgArg `positional-args:"yes"`
}) error {
	s, err := openSession(ctx, opts.IndexOpts)
	if err != nil {
		return err
	}

	defer s.Close()

	cat := s.Catalog

	id, ok := cat.Lookup(opts.Pos.Package)
	if !ok {
		s.UI.NoSuchPackage(opts.Pos.Package)
		return nil
	}

	ent := entry{ID: id, Name: cat.Name(id)}

	if v, ok := cat.Installed(id); ok {
		ent.Installed = v.String()
	}

	if v, ok := cat.Available(id); ok {
		ent.Available = v.String()
	}

	ent.MD5sum, _ = cat.Checksum(id)

	for _, dep := range cat.Dependencies(id) {
		ent.Dependencies = append(ent.Dependencies, cat.FormatDependency(dep))
	}

	spew.Dump(ent)

	return nil
}

func configF(ctx context.Context, opts struct{}) error {
	cfg, _, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	osName, osVersion, arch := config.Platform()

	tw := tabwriter.NewWriter(os.Stdout, 4, 2, 1, ' ', 0)
	defer tw.Flush()

	fmt.Fprintf(tw, "Config File:\t%s\n", cfg.Path())
	fmt.Fprintf(tw, "Server:\t%s\n", cfg.Server)
	fmt.Fprintf(tw, "Packages:\t%s\n", cfg.Packages)
	fmt.Fprintf(tw, "Installed:\t%s\n", cfg.Installed)
	fmt.Fprintf(tw, "Sums:\t%s\n", cfg.Sums)
	fmt.Fprintf(tw, "Cache Dir:\t%s\n", cfg.CacheDir)
	fmt.Fprintf(tw, "Concurrency:\t%d\n", cfg.Concurrency)
	fmt.Fprintf(tw, "Poll Interval:\t%s\n", cfg.PollInterval)
	fmt.Fprintf(tw, "Timeout:\t%s\n", cfg.Timeout)
	fmt.Fprintf(tw, "Platform:\t%s %s %s\n", osName, osVersion, arch)
	fmt.Fprintf(tw, "User Agent:\t%s\n", cfg.UserAgent())

	return nil
}
