package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pitabwire/l10n"
	"github.com/pitabwire/l10n/config"
	"github.com/pitabwire/l10n/localization"
	"github.com/pitabwire/l10n/version"
)

const minArgsCommand = 2

func main() {
	if len(os.Args) < minArgsCommand {
		usage(os.Stdout)
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "format":
		exitOnErr(cmdFormat(ctx, os.Args[2:], os.Stdout, os.Stderr))
	case "sources":
		exitOnErr(cmdSources(os.Args[2:], os.Stdout))
	case "version":
		fmt.Fprintln(os.Stdout, version.String())
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		// #nosec G705 -- CLI output is not rendered in an HTML context.
		fmt.Fprintf(os.Stderr, "unknown command: %q\n", os.Args[1])
		usage(os.Stdout)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "l10n <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  format -sources FILE [-locales pl,en-US] -res ID [-res ID] [-arg name=value] [-async] id...")
	fmt.Fprintln(w, "  sources FILE")
	fmt.Fprintln(w, "  version")
}

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string {
	return strings.Join(*l, ",")
}

func (l *listFlag) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func cmdFormat(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sourcesFile := fs.String("sources", "", "YAML sources file")
	locales := fs.String("locales", "", "comma separated locale chain, overrides the sources file")
	async := fs.Bool("async", false, "fetch resources in the background")
	var resourceIDs, rawArgs listFlag
	fs.Var(&resourceIDs, "res", "resource id, repeatable")
	fs.Var(&rawArgs, "arg", "message argument as name=value, repeatable")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sourcesFile == "" {
		return errors.New("-sources is required")
	}
	if len(resourceIDs) == 0 {
		return errors.New("at least one -res is required")
	}
	if fs.NArg() < 1 {
		return errors.New("at least one message id is required")
	}

	msgArgs, err := parseArgs(rawArgs)
	if err != nil {
		return err
	}

	opts := []l10n.Option{l10n.WithSourcesFile(*sourcesFile)}
	if *locales != "" {
		opts = append(opts, l10n.WithLocales(strings.Split(*locales, ",")...))
	}

	ctx, srv := l10n.NewService(ctx, opts...)
	defer srv.Stop(ctx)
	if err = srv.Err(); err != nil {
		return err
	}

	l := srv.Localization(resourceIDs...)
	if *async {
		l.SetAsync()
	}

	keys := make([]localization.Key, 0, fs.NArg())
	for _, id := range fs.Args() {
		keys = append(keys, localization.Key{ID: id, Args: msgArgs})
	}

	var errs []error
	values, err := l.FormatValues(ctx, keys, &errs)
	if err != nil {
		return err
	}

	for _, v := range values {
		fmt.Fprintln(stdout, v)
	}
	for _, e := range errs {
		fmt.Fprintln(stderr, e)
	}
	return nil
}

func cmdSources(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("sources file is required")
	}

	locales, definitions, err := config.LoadSources(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "locales: %s\n", strings.Join(locales, ", "))
	for _, def := range definitions {
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\t%s\n",
			def.Name, strings.Join(def.Locales, ","), def.Template, def.Backend, def.Location)
	}
	return nil
}

// parseArgs turns name=value pairs into message arguments. Values that
// parse as integers are passed as numbers so plural selection applies.
func parseArgs(raw []string) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil //nolint:nilnil // no arguments
	}

	out := make(map[string]any, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q is not name=value", kv)
		}
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			out[name] = n
			continue
		}
		out[name] = value
	}
	return out, nil
}

func exitOnErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
