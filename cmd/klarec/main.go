// Package main provides the Klare front-end driver: it scans and parses
// modules, dumps tokens or the AST, and can re-run the pipeline when
// watched sources change.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/klare-lang/klare/internal/diagnostic"
	"github.com/klare-lang/klare/internal/lexer"
	"github.com/klare-lang/klare/internal/modules"
	"github.com/klare-lang/klare/internal/parser"
	"github.com/klare-lang/klare/internal/project"
	"github.com/klare-lang/klare/internal/source"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		dumpTokens  = flag.Bool("tokens", false, "dump the token stream instead of parsing")
		dumpAST     = flag.Bool("ast", false, "dump the AST after parsing")
		watch       = flag.Bool("watch", false, "re-run the pipeline when input files change")
		noManifest  = flag.Bool("no-manifest", false, "skip the project manifest lookup")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("klarec v%s (%s) language %s\n", version, commit, project.LanguageVersion)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: klarec [flags] <file.klr>...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if !*noManifest {
		checkManifest(args[0])
	}

	run := func() bool {
		ok := true
		for _, path := range args {
			if !processFile(path, *dumpTokens, *dumpAST) {
				ok = false
			}
		}
		return ok
	}

	if !*watch {
		if !run() {
			os.Exit(1)
		}
		return
	}

	watchLoop(args, run)
}

// checkManifest enforces the project's language constraint when a
// manifest exists near the first input.
func checkManifest(input string) {
	path, err := project.Find(filepath.Dir(input))
	if err != nil {
		return
	}
	m, err := project.Load(path)
	if err != nil {
		log.Fatalf("klarec: %v", err)
	}
	if err := m.CheckLanguage(); err != nil {
		log.Fatalf("klarec: %v", err)
	}
}

// processFile runs the scan/parse pipeline on one module. It reports
// success; diagnostics go to stderr.
func processFile(path string, dumpTokens, dumpAST bool) bool {
	buf, err := source.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "klarec: %v\n", err)
		return false
	}
	defer buf.Close()

	lx := lexer.New(path, buf.Data)
	tokens := lx.Tokenize()
	lineStarts := lx.LineStarts()

	if dumpTokens {
		for i := 0; i < tokens.Len(); i++ {
			t := tokens.At(i)
			pos := diagnostic.LineCol(lineStarts, t.Start)
			fmt.Printf("%4d  %-14s %s  %q\n", i, t.Kind, pos, t.Text(buf.Data))
		}
		return true
	}

	p := parser.New(path, buf.Data, tokens, lineStarts)
	tree, err := p.Parse()
	if err != nil {
		if diag, ok := err.(*diagnostic.Error); ok {
			diag.Render(os.Stderr, buf.Data)
		} else {
			fmt.Fprintf(os.Stderr, "klarec: %v\n", err)
		}
		return false
	}

	if dumpAST {
		tree.Dump(os.Stdout, 0, 0)
	}
	return true
}

// watchLoop re-runs the pipeline whenever a watched input changes.
func watchLoop(paths []string, run func() bool) {
	w, err := modules.NewWatcher()
	if err != nil {
		log.Fatalf("klarec: %v", err)
	}
	defer w.Close()

	// Watch the containing directories: editors replace files on save,
	// which drops a file-level watch.
	dirs := map[string]bool{}
	for _, p := range paths {
		dirs[filepath.Dir(p)] = true
	}
	for d := range dirs {
		if err := w.Add(d); err != nil {
			log.Fatalf("klarec: watch %s: %v", d, err)
		}
	}

	watched := map[string]bool{}
	for _, p := range paths {
		watched[filepath.Clean(p)] = true
	}

	run()
	log.Printf("watching %d file(s)", len(paths))
	for {
		select {
		case ev, ok := <-w.Events():
			if !ok {
				return
			}
			if !watched[ev.Path] || ev.Op&(modules.OpWrite|modules.OpCreate) == 0 {
				continue
			}
			log.Printf("%s changed", ev.Path)
			run()
		case err := <-w.Errors():
			log.Printf("klarec: watch error: %v", err)
		}
	}
}
