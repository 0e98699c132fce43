// Command seeql is the SeeQL SQL playground: an HTTP API and CLI for
// running, explaining and exporting beginner SQL queries.
package main

import (
	"github.com/seeql-labs/seeql/internal/cli"
)

func main() {
	cli.Execute()
}
