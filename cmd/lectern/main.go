package main

import (
	"github.com/lectern-labs/lectern/internal/adapters/driving/cli"
)

func main() {
	cli.Execute()
}
