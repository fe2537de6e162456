package main

import (
	"os"

	"github.com/firefly-engineering/adminmux/cmd"
	"github.com/firefly-engineering/adminmux/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
