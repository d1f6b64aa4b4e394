package main

import (
	"fmt"
	"os"

	"github.com/zjy-dev/speccov/cmd/speccov/app"
)

func main() {
	if err := app.NewSpeccovCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
