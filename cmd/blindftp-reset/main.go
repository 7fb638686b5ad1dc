// Command blindftp-reset forces a subset of a sender's reference tree
// back to never-sent, so the next synchronization pass re-transmits it.
// Ported from original_source/xfl_reset.py's four selection modes.
package main

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/blindftp/blindftp/reftree"
)

func main() {
	var (
		syncFile   = flag.String("c", "", "reference tree checkpoint file to modify (required)")
		rootPath   = flag.String("root", "", "synchronized root directory, for the --diff mode's disk scan")
		path       = flag.String("path", "", "reset exactly this one tracked path")
		pattern    = flag.String("regexp", "", "reset every tracked path matching this regular expression")
		sinceStr   = flag.String("since", "", "reset every file modified at or after this RFC3339 timestamp")
		diffMode   = flag.Bool("diff", false, "reset every file that differs from (or is new on) disk")
	)
	flag.Parse()

	if *syncFile == "" {
		fmt.Fprintln(os.Stderr, "blindftp-reset: -c is required")
		os.Exit(1)
	}
	modesSelected := 0
	for _, set := range []bool{*path != "", *pattern != "", *sinceStr != "", *diffMode} {
		if set {
			modesSelected++
		}
	}
	if modesSelected != 1 {
		fmt.Fprintln(os.Stderr, "blindftp-reset: select exactly one of -path, -regexp, -since, -diff")
		os.Exit(1)
	}

	tree, err := reftree.ReadFile(*syncFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "blindftp-reset:", err)
		os.Exit(1)
	}

	var matched reftree.ResetMatch
	switch {
	case *path != "":
		matched = reftree.ResetByPath(tree, *path)
	case *pattern != "":
		re, err := regexp.Compile(*pattern)
		if err != nil {
			fmt.Fprintln(os.Stderr, "blindftp-reset: bad -regexp:", err)
			os.Exit(1)
		}
		matched = reftree.ResetByRegexp(tree, re)
	case *sinceStr != "":
		since, err := time.Parse(time.RFC3339, *sinceStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "blindftp-reset: bad -since:", err)
			os.Exit(1)
		}
		matched = reftree.ResetByDate(tree, since)
	case *diffMode:
		if *rootPath == "" {
			fmt.Fprintln(os.Stderr, "blindftp-reset: -diff requires -root")
			os.Exit(1)
		}
		disk, err := reftree.ScanDisk(*rootPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "blindftp-reset:", err)
			os.Exit(1)
		}
		matched = reftree.ResetByDiff(tree, reftree.Compare(tree, disk))
	}

	if err := reftree.WriteFile(tree, *syncFile); err != nil {
		fmt.Fprintln(os.Stderr, "blindftp-reset:", err)
		os.Exit(1)
	}

	fmt.Printf("reset %d file(s)\n", len(matched))
	for _, p := range matched {
		fmt.Println(" ", p)
	}
}
