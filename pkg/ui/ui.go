package ui

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/morikuni/aec"
	"lab47.dev/debdeps/pkg/ops"
	"lab47.dev/debdeps/pkg/verify"
)

// UI writes human readable output. It implements verify.Reporter.
type UI struct {
	Out   io.Writer
	Color bool
}

func New(w io.Writer, color bool) *UI {
	return &UI{Out: w, Color: color}
}

func (u *UI) out() io.Writer {
	if u.Out == nil {
		return os.Stdout
	}

	return u.Out
}

func (u *UI) paint(s string, c aec.ANSI) string {
	if !u.Color {
		return s
	}

	return aec.Apply(s, c)
}

func (u *UI) NoSuchPackage(name string) {
	fmt.Fprintf(u.out(), "no such package %s\n", name)
}

func (u *UI) NotDefined(name string) {
	fmt.Fprintf(u.out(), "Error: package %s not defined.\n", name)
}

// Count prints a "Label: N" summary line, as after loading an index.
func (u *UI) Count(label string, n int) {
	fmt.Fprintf(u.out(), "%s: %d\n", label, n)
}

// Value prints one field of a package, or that the field is unset.
func (u *UI) Value(name, field, value string) {
	if value == "" {
		fmt.Fprintf(u.out(), "Package %s has no %s\n", name, field)
		return
	}

	fmt.Fprintf(u.out(), "Package %s %s: %s\n", name, field, value)
}

func (u *UI) Exists(name string, ok bool) {
	fmt.Fprintf(u.out(), "Package %s exists: %t\n", name, ok)
}

func (u *UI) DependencyReport(rep *ops.DependencyReport) {
	w := u.out()

	fmt.Fprintf(w, "Package %s:\n", rep.Package)

	if len(rep.Dependencies) == 0 {
		fmt.Fprintln(w, "There are no associated dependencies.")
		return
	}

	for _, st := range rep.Dependencies {
		fmt.Fprintf(w, "- dependency %q\n", st.Expression)

		if st.Satisfied {
			fmt.Fprintf(w, "+ %s satisfied by installed version %s\n", st.By, st.Installed)
		} else {
			fmt.Fprintln(w, u.paint("-> not satisfied", aec.RedF))
		}
	}
}

func (u *UI) Closure(name string, names []string) {
	w := u.out()

	fmt.Fprintf(w, "Package %s:\n", name)

	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}

	fmt.Fprintf(w, "%d transitive dependencies\n", len(names))
}

func (u *UI) Plan(name string, plan []ops.PlanEntry) {
	w := u.out()

	fmt.Fprintf(w, "Package %s:\n", name)

	if len(plan) == 0 {
		fmt.Fprintln(w, "Nothing to install.")
		return
	}

	tw := tabwriter.NewWriter(w, 4, 2, 1, ' ', 0)
	fmt.Fprintln(tw, "NAME\tINSTALLED\tAVAILABLE")

	for _, ent := range plan {
		installed := ent.Installed
		if installed == "" {
			installed = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\n", ent.Name, installed, ent.Available)
	}

	tw.Flush()

	fmt.Fprintf(w, "%d packages to install\n", len(plan))
}

func (u *UI) Queued(url string) {
	fmt.Fprintf(u.out(), "queueing request %s\n", url)
}

func (u *UI) Verified(res *verify.Result) {
	w := u.out()

	switch res.Outcome {
	case verify.Match:
		fmt.Fprintf(w, "verifying %s, matches: %s\n", res.Package, u.paint("true", aec.GreenF))
	case verify.Mismatch:
		fmt.Fprintf(w, "verifying %s, matches: %s\n", res.Package, u.paint("false", aec.RedF))
	case verify.NoChecksum:
		fmt.Fprintf(w, "verifying %s, no local checksum\n", res.Package)
	case verify.Failed:
		if res.Status != 0 {
			fmt.Fprintf(w, "got error %d on request for package %s version %s\n",
				res.Status, res.Package, res.Version)
		} else {
			fmt.Fprintf(w, "request for package %s version %s failed: %s\n",
				res.Package, res.Version, res.Err)
		}
	}
}
