// Command tcvalidate checks a TriggerCards JSONL file for schema
// conformance, reporting line-level errors and tolerating a truncated final
// line as a crash-tail rather than a corruption (spec.md §4.5, §8 scenario 6).
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edgehunter/kernel/internal/triggercard"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <triggercards.jsonl>\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	result := triggercard.ValidateFile(path)

	fmt.Printf("%s\n", path)
	fmt.Printf("  valid records:    %d\n", result.ValidCount)
	if result.HasTruncatedLine {
		fmt.Printf("  truncated tail:   yes (crash-tail, not counted as an error)\n")
	}
	if len(result.Errors) > 0 {
		fmt.Printf("  errors:           %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	if !result.Success {
		fmt.Println("  result:           FAIL")
		os.Exit(1)
	}
	fmt.Println("  result:           OK")
}
