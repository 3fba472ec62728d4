// Copyright (c) 2020 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Program bindelta diffs two exported programs and prints the result.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"

	"github.com/tsavola/bindelta"
	"github.com/tsavola/bindelta/config"
	"github.com/tsavola/bindelta/errors/errordata"
)

var (
	verbose    = false
	jsonErrors = false
)

// fatal reports the error and exits.  With -json the error is serialized so
// that a calling tool can tell a malformed export from an I/O problem.
func fatal(err error) {
	if jsonErrors {
		data, e := json.Marshal(errordata.Deconstruct(err))
		if e != nil {
			log.Fatalf("%v", err)
		}
		fmt.Fprintln(os.Stderr, string(data))
		os.Exit(1)
	}
	log.Fatalf("%v", err)
}

func main() {
	log.SetHandler(cli.New(os.Stderr))

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] primary.export secondary.export\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	var (
		configFile  = ""
		listMatches = false
		showCounts  = false
	)

	flag.BoolVar(&verbose, "v", verbose, "verbose logging")
	flag.BoolVar(&jsonErrors, "json", jsonErrors, "report errors as JSON on stderr")
	flag.StringVar(&configFile, "config", configFile, "configuration file")
	flag.BoolVar(&listMatches, "list", listMatches, "list matched functions")
	flag.BoolVar(&showCounts, "counts", showCounts, "print the full counts table")
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			fatal(err)
		}
		if level, err := log.ParseLevel(cfg.Log.Level); err == nil && !verbose {
			log.SetLevel(level)
		}
	}

	primary := flag.Arg(0)
	secondary := flag.Arg(1)

	log.Infof("reading: %s", primary)
	log.Infof("reading: %s", secondary)

	session, err := bindelta.Load(primary, secondary)
	if err != nil {
		fatal(err)
	}
	defer session.Close()

	result := session.Diff()

	fmt.Printf("similarity: %.6f\n", result.Similarity)
	fmt.Printf("confidence: %.6f\n", result.Confidence)
	fmt.Printf("matched functions: %d\n", len(result.FixedPoints))

	fmt.Printf("\nmatching steps:\n")
	for _, name := range sortedKeys(result.Histogram) {
		fmt.Printf("%8d  %s\n", result.Histogram[name], name)
	}

	if showCounts {
		fmt.Printf("\ncounts:\n")
		names := make([]string, 0, len(result.Counts))
		for name := range result.Counts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("%8d  %s\n", result.Counts[name], name)
		}
	}

	if listMatches {
		fmt.Printf("\nmatches:\n")
		for _, fp := range result.FixedPoints {
			name := fp.Primary().DemangledName()
			if name == "" {
				name = fp.Primary().Name()
			}
			fmt.Printf("%v  %v  %.6f  %-36s  %s  %s\n",
				fp.Primary().EntryPoint(), fp.Secondary().EntryPoint(),
				result.FunctionSimilarity(fp), fp.MatchingStep(), fp.Changes(), name)
		}
	}
}

func sortedKeys(histogram bindelta.Histogram) []string {
	names := make([]string, 0, len(histogram))
	for name := range histogram {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
