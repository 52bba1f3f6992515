// main is the entry point for the codetime CLI.
package main

import (
	"fmt"
	"os"

	"github.com/huangsam/codetime/cmd"
	"github.com/huangsam/codetime/internal/iocache"
)

func main() {
	cmd.SetCacheManager(iocache.Manager)
	err := cmd.Execute()
	iocache.CloseCaching()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}
