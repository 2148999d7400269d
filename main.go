package main

import (
	"github.com/sw33tLie/tenderscope/cmd"
)

func main() {
	cmd.Execute()
}
