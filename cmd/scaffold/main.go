// Command scaffold boots the scaffold plugin inside the in-process host and
// drives its lifecycle: boot, activate, deactivate, render, inspect and serve.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pluginscaffold/internal/config"
)

var exitFunc = os.Exit

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, a *app, args []string, stdout io.Writer) error
}

var commands = []command{
	{"boot", "construct the plugin and fire init and widgets_init", runBoot},
	{"activate", "fire the activation hook and mark the plugin active", runActivate},
	{"deactivate", "fire the deactivation hook and mark the plugin inactive", runDeactivate},
	{"render", "render a page for a request path", runRender},
	{"inspect", "print hooks, shortcodes, definitions and registry state", runInspect},
	{"serve", "serve pages, assets and metrics over HTTP", runServe},
}

var errUsage = errors.New("usage")

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	fs := flag.NewFlagSet("scaffold "+cmd.name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var configPath, envPath string
	fs.StringVar(&configPath, "config", "", "path to a YAML config file")
	fs.StringVar(&envPath, "env", ".env", "path to a dotenv file, ignored when missing")
	rest, err := splitGlobal(fs, args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(configPath, envPath)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := cmd.run(ctx, a, rest, stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errUsage) {
			return 2
		}
		a.log.Error(err, "command failed", "command", cmd.name)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// splitGlobal parses the flags every command shares and returns the rest for
// the command's own flag set.
func splitGlobal(fs *flag.FlagSet, args []string) ([]string, error) {
	var global, rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, _, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") {
			rest = append(rest, arg)
			continue
		}
		switch name {
		case "config", "env":
			global = append(global, arg)
			if !hasValue && i+1 < len(args) {
				global = append(global, args[i+1])
				i++
			}
		case "h", "help":
			global = append(global, arg)
		default:
			rest = append(rest, arg)
		}
	}
	return rest, fs.Parse(global)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: scaffold <command> [-config file.yaml] [-env .env] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.usage)
	}
	fmt.Fprintln(w)
	config.Usage(w)
}
