// Command dicegame plays a local game of Zanzibar through the task pipeline
// and prints the accumulated result as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/ahrav/taskflow/internal/app/dicegame"
	"github.com/ahrav/taskflow/pkg/common/logger"
)

func main() {
	_, _ = maxprocs.Set()

	nbLaunch := flag.Int("launches", 5, "number of dice launches to play")
	verbose := flag.Bool("verbose", false, "log the pipeline's progress")
	flag.Parse()

	log := logger.Noop()
	if *verbose {
		log = logger.New(os.Stderr, logger.LevelDebug, "dicegame", nil)
	}

	res := dicegame.Play(context.Background(), *nbLaunch, log)

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		stdlog.Fatalf("failed to render result: %v", err)
	}
	fmt.Println(string(out))

	if res.IsError() {
		os.Exit(1)
	}
}
