package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/backbone81/nano-wal/cmd/wal-cli/cmd"
)

func main() {
	cmd.Execute()
}
