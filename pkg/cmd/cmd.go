package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"reflect"

	"github.com/jessevdk/go-flags"
	"golang.org/x/sys/unix"
	"lab47.dev/debdeps/pkg/progress"
)

// Globals are accepted by every command.
type Globals struct {
	LogLevel   string `long:"log-level" description:"log level (trace, debug, info, warn, error)"`
	Config     string `long:"config" description:"path to the config file" env:"DEBDEPS_CONFIG"`
	NoProgress bool   `long:"no-progress" description:"disable progress bars"`
}

type globalsKey struct{}

// GlobalsFrom returns the global options the command was invoked with.
func GlobalsFrom(ctx context.Context) *Globals {
	g, ok := ctx.Value(globalsKey{}).(*Globals)
	if !ok {
		return &Globals{}
	}

	return g
}

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Cmd adapts a function of the form func(ctx, opts struct{...}) error to
// a cli.Command. The struct is parsed with go-flags tags.
type Cmd struct {
	syn, name string
	f         reflect.Value

	opts    reflect.Value
	globals *Globals
	parser  *flags.Parser

	// Stdout receives the error report; os.Stdout when nil.
	Stdout io.Writer
}

func New(name, syn string, f interface{}) *Cmd {
	rv := reflect.ValueOf(f)

	if rv.Kind() != reflect.Func {
		panic("must pass a function")
	}

	rt := rv.Type()

	if rt.NumIn() != 2 || rt.In(0) != ctxType {
		panic("must accept a context and an options struct")
	}

	if rt.NumOut() != 1 || rt.Out(0) != errType {
		panic("must return an error only")
	}

	in := rt.In(1)

	if in.Kind() != reflect.Struct {
		panic("argument must be a struct")
	}

	sv := reflect.New(in)
	globals := &Globals{}

	parser := flags.NewNamedParser(name, flags.Default)
	parser.ShortDescription = syn
	parser.LongDescription = syn

	_, err := parser.AddGroup("Application Options", "", sv.Interface())
	if err != nil {
		panic(err)
	}

	_, err = parser.AddGroup("Global Options", "", globals)
	if err != nil {
		panic(err)
	}

	return &Cmd{
		syn:     syn,
		name:    name,
		f:       rv,
		opts:    sv,
		globals: globals,
		parser:  parser,
	}
}

func (w *Cmd) Help() string {
	var buf bytes.Buffer
	w.parser.WriteHelp(&buf)
	return buf.String()
}

func (w *Cmd) Synopsis() string {
	return w.syn
}

func (w *Cmd) Run(args []string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cancelOnSignal(cancel, os.Interrupt, unix.SIGQUIT, unix.SIGTERM)

	return w.RunContext(ctx, args)
}

// RunContext parses args and invokes the command under ctx, returning the
// process exit status.
func (w *Cmd) RunContext(ctx context.Context, args []string) int {
	_, err := w.parser.ParseArgs(args)
	if err != nil {
		return 1
	}

	ctx = context.WithValue(ctx, globalsKey{}, w.globals)

	if !w.globals.NoProgress {
		ctx = progress.Open(ctx, os.Stderr)
	}

	rets := w.f.Call([]reflect.Value{reflect.ValueOf(ctx), w.opts.Elem()})

	if err, ok := rets[0].Interface().(error); ok && err != nil {
		out := w.Stdout
		if out == nil {
			out = os.Stdout
		}

		fmt.Fprintf(out, "! Error: %+v\n", err)
		return 1
	}

	return 0
}

func cancelOnSignal(cancel func(), signals ...os.Signal) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, signals...)

	go func() {
		for range c {
			cancel()
		}
	}()
}
