package main

import (
	"github.com/NVIDIA/appbundle/pkg/cli"
)

func main() {
	cli.Execute()
}
