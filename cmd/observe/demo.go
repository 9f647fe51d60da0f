package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/observe/pkg/observable"
)

func demoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through a duplexed value",
		Long: `Walk through a font group duplexed over two text styles.

The demo prints every change event while it writes to the styles and
to the group, shows a vetoed broadcast, and disposes the group.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout())
		},
	}
}

func runDemo(out io.Writer) error {
	realm := observable.NewInlineRealm(observable.WithRealmName("demo"))

	title := observable.NewWritableValue("Mono", observable.WithName("title"), observable.WithRealm(realm))
	body := observable.NewWritableValue("Mono", observable.WithName("body"), observable.WithRealm(realm))
	font := observable.NewDuplexingValueWithDefaults(
		[]observable.Value[string]{title, body}, "", "<mixed>",
		observable.WithName("font"),
	)
	width := observable.NewComputedValue(func() int { return len(font.Get()) },
		[]observable.Observable{font},
		observable.WithName("width"),
	)

	for _, v := range []*observable.WritableValue[string]{title, body} {
		printChanges[string](out, v)
	}
	printChanges[string](out, font)
	width.AddChangeListener(observable.ChangeFunc(func(*observable.ChangeEvent) {}))

	step := func(format string, args ...any) {
		fmt.Fprintf(out, "\n%s\n", bold(fmt.Sprintf(format, args...)))
	}
	state := func() {
		fmt.Fprintf(out, "  = font %q, width %d\n", font.Get(), width.Get())
	}

	step("1. Both styles agree")
	state()

	step("2. body.Set(%q)", "Sans")
	if err := body.Set("Sans"); err != nil {
		return err
	}
	state()

	step("3. font.Set(%q) writes every style", "Serif")
	if err := font.Set("Serif"); err != nil {
		return err
	}
	state()

	step("4. title vetoes %q", "Comic")
	title.AddValueChangingListener(observable.ValueChangingFunc[string](func(ev *observable.ValueChangingEvent[string]) {
		if ev.Diff.NewValue() == "Comic" {
			ev.Veto = true
		}
	}))
	if err := font.Set("Comic"); err != nil {
		fmt.Fprintf(out, "  %s %v\n", yellow("vetoed:"), err)
	}
	state()

	step("5. Dispose font")
	font.Dispose()
	if err := font.Set("Serif"); err != nil {
		fmt.Fprintf(out, "  %s %v\n", red("after dispose:"), err)
	}
	fmt.Fprintf(out, "  = font %q, title %q, body %q\n", font.Get(), title.Get(), body.Get())

	fmt.Fprintf(out, "\n%s\n", green("done"))
	return nil
}

func printChanges[T any](out io.Writer, v observable.Value[T]) {
	name := v.Name()
	v.AddValueChangeListener(observable.ValueChangeFunc[T](func(ev *observable.ValueChangeEvent[T]) {
		fmt.Fprintf(out, "  %s: %q -> %q\n", name, fmt.Sprint(ev.Diff.OldValue()), fmt.Sprint(ev.Diff.NewValue()))
	}))
}
