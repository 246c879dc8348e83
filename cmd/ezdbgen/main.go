// Command ezdbgen generates, builds and packages EF Core data-access
// libraries for the databases of one server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/ezdbgen/internal/cli"
)

func main() {
	err := cli.NewRootCommand().ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "ezdbgen:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
