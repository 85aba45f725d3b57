// Command hello runs the greeting task locally and prints the accumulated
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/taskflow/internal/app/hello"
	"github.com/ahrav/taskflow/internal/domain/execution"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

func main() {
	_, _ = maxprocs.Set()

	user := flag.String("user", "", "name of the user to greet")
	verbose := flag.Bool("verbose", false, "log the pipeline's progress")
	flag.Parse()

	log := logger.Noop()
	if *verbose {
		log = logger.New(os.Stderr, logger.LevelDebug, "hello", nil)
	}

	task := hello.New(hello.Params{User: *user}, execution.WithLogger(log))
	res := execution.Execute(context.Background(), task, nil)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		stdlog.Fatalf("failed to render result: %v", err)
	}
	fmt.Println(string(out))

	if res.IsError() {
		os.Exit(1)
	}
}
