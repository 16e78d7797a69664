// Command wlvalidate checks a solution of the warehouse location problem
// with store incompatibilities and prints its cost and violations.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"wlcheck/internal/buildinfo"
	"wlcheck/internal/dzn"
	"wlcheck/internal/validate"
)

func main() {
	os.Exit(run(os.Args[0], os.Args[1:], os.Stdout, os.Stderr))
}

func run(prog string, args []string, stdout, stderr io.Writer) int {
	logger := log.New(stderr, "", 0)
	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(stderr)
	format := fs.String("format", "text", "report format: text or json")
	verbose := fs.Bool("verbose", false, "also print the instance and warehouse usage")
	asList := fs.Bool("list", false, "also print the solution in list notation")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <input_file> <solution_file>\n", prog)
		fmt.Fprintln(stderr, "Input file in .dzn format, solution file either in matrix format (within []) or list format (within {}).")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *showVersion {
		info := buildinfo.Info()
		fmt.Fprintf(stdout, "%s %s (commit %s, built %s, %s)\n", prog, info["version"], info["commit"], info["builtAt"], info["goVersion"])
		return 0
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return 1
	}
	if *format != "text" && *format != "json" {
		logger.Printf("unknown format %q", *format)
		return 1
	}

	in, err := dzn.LoadInstance(fs.Arg(0))
	if err != nil {
		logger.Print(err)
		return 1
	}
	as, err := dzn.LoadSolution(fs.Arg(1), in)
	if err != nil {
		logger.Print(err)
		return 1
	}
	eng := validate.NewEngine(in)
	if err := eng.AssignAll(as); err != nil {
		logger.Print(err)
		return 1
	}

	if *format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(eng.Summary()); err != nil {
			logger.Print(err)
			return 1
		}
		return 0
	}

	if *verbose {
		if err := in.Describe(stdout); err != nil {
			logger.Print(err)
			return 1
		}
	}
	if err := eng.PrintReport(stdout); err != nil {
		logger.Print(err)
		return 1
	}
	if *verbose {
		if err := eng.PrintUsage(stdout); err != nil {
			logger.Print(err)
			return 1
		}
	}
	if *asList {
		if err := eng.WriteList(stdout); err != nil {
			logger.Print(err)
			return 1
		}
	}
	fmt.Fprintln(stdout)
	return 0
}
