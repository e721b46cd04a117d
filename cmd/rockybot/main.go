// Command rockybot answers questions about news articles. It fetches the
// articles, indexes them in a vector knowledge base, and answers questions
// with citations through a CLI or an HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/54b3r/rockybot-go/cmd/rockybot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
