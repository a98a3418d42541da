// Command gantt schedules task forests from files or the task database and
// manages stored tasks and schedule snapshots.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gantt: %v\n", err)
		os.Exit(1)
	}
}
