package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orizon-lang/metaspace/internal/cli"
	"github.com/orizon-lang/metaspace/internal/metaspace"
)

const wordsPerMB = (1024 * 1024) / metaspace.BytesPerWord

func main() {
	var (
		showVersion = flag.Bool("version", false, "show version information")
		showHelp    = flag.Bool("help", false, "show help information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
		strategy    = flag.String("strategy", "balanced", "reclaim strategy: balanced, none, aggressive")
		nodeCount   = flag.Int("nodes", 1, "number of virtual space nodes to reserve")
		nodeSizeMB  = flag.Int("node-size", 8, "reservation size per node in MB")
		commitMB    = flag.Int("commit", 1, "MB to commit at the front of each node")
		uncommit    = flag.Bool("uncommit", false, "uncommit the first half of each committed range again")
		limitMB     = flag.Int("commit-limit", 0, "commit limiter cap in MB (0 = unlimited)")
		showMap     = flag.Bool("map", false, "print each node's commit mask")
		checks      = flag.Bool("checks", false, "enable consistency checks and run full verification")
		tunables    = flag.String("tunables", "", "tunables file to apply and watch")
		httpAddr    = flag.String("http", "", "serve debug endpoints on this address until interrupted (e.g. :6060)")
		verbose     = flag.Bool("verbose", false, "verbose output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Metaspace commit-state inspection tool.\n\n")
		fmt.Fprintf(os.Stderr, "Reserves virtual space nodes, commits and uncommits granule ranges,\n")
		fmt.Fprintf(os.Stderr, "and prints the resulting usage report and commit masks.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s --map                                # One node, 1 MB committed, show the mask\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --strategy aggressive --uncommit     # Fine granules, reclaim half again\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --nodes 4 --commit-limit 2           # Drive four nodes into a 2 MB commit cap\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --http :6060                         # Keep serving /metaspace/* endpoints\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if *showVersion {
		cli.PrintVersion("Metaspace Inspector", *jsonOutput)
		os.Exit(0)
	}

	log := cli.NewLogger(*verbose, false)

	st, err := metaspace.ParseReclaimStrategy(*strategy)
	if err != nil {
		cli.ExitWithError("%v", err)
	}
	if err := metaspace.InitializeSettings(st); err != nil {
		cli.ExitWithError("%v", err)
	}
	if *checks {
		metaspace.SetConsistencyChecks(true)
	}

	if *tunables != "" {
		tw, err := metaspace.WatchTunables(*tunables)
		if err != nil {
			cli.ExitWithError("tunables: %v", err)
		}
		defer tw.Close()
		go func() {
			for err := range tw.Errors() {
				log.Warn("tunables: %v", err)
			}
		}()
	}

	log.Info("strategy %s, commit granule %d words (%d KB)",
		st, metaspace.CommitGranuleWords(), metaspace.CommitGranuleBytes()/1024)

	var limiter *metaspace.CommitLimiter
	if *limitMB > 0 {
		limiter = metaspace.NewCommitLimiter(uintptr(*limitMB) * wordsPerMB)
	}

	list := metaspace.NewNodeList("metaspace", limiter)
	defer list.Destroy()

	for i := 0; i < *nodeCount; i++ {
		node, err := list.CreateNode(uintptr(*nodeSizeMB) * wordsPerMB)
		if err != nil {
			cli.ExitWithError("reserve node %d: %v", i, err)
		}
		log.Info("node %d reserved at %#x, %d words", i, node.Base(), node.WordSize())

		commitWords := uintptr(*commitMB) * wordsPerMB
		if commitWords > node.WordSize() {
			commitWords = node.WordSize()
		}
		if commitWords == 0 {
			continue
		}

		if err := node.EnsureRangeCommitted(node.Base(), commitWords); err != nil {
			cli.ExitWithError("commit node %d: %v", i, err)
		}

		if *uncommit {
			// Return the granule-aligned front half.
			half := commitWords / 2
			half -= half % metaspace.CommitGranuleWords()
			if half > 0 {
				if err := node.UncommitRange(node.Base(), half); err != nil {
					cli.ExitWithError("uncommit node %d: %v", i, err)
				}
			}
		}
	}

	if *checks {
		list.Verify(true)
		log.Info("verification passed")
	}

	rep := metaspace.NewReporter(list)
	flags := metaspace.ReportShowSettings | metaspace.ReportShowNodes
	if *showMap {
		flags |= metaspace.ReportShowCommitMap
	}
	rep.PrintReport(os.Stdout, flags)

	if *httpAddr != "" {
		shutdown, addr, err := metaspace.StartDebugHTTP(rep, *httpAddr)
		if err != nil {
			cli.ExitWithError("debug http: %v", err)
		}
		fmt.Printf("serving debug endpoints on %s (Ctrl-C to stop)\n", addr)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		<-ctx.Done()
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown: %v", err)
		}
	}
}
