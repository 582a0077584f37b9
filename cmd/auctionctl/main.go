// Command auctionctl issues one auction operation per invocation.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(GetExitCode(err))
	}
}
