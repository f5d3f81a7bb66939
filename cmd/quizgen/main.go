// Command quizgen generates quiz questions through the AI, cache and static
// fallback chain, and exposes the provider layer for one-off completions and
// connectivity probes.
//
//	quizgen generate --topic cs --difficulty easy --count 5
//	quizgen providers
//	quizgen complete --provider local --prompt "Hello" --stream
//	quizgen probe --provider gemini --json
//	quizgen version
package main

import (
	"context"
	"os"

	_ "github.com/kbukum/quizgen/llm/gemini"
	_ "github.com/kbukum/quizgen/llm/local"
	_ "github.com/kbukum/quizgen/llm/mock"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
