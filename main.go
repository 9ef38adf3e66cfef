package main

import (
	"context"
	"fmt"
	"os"
)

// main function to parse arguments and initiate the chat request.
func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
