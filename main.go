package main

import (
	"github.com/animesh/viral-ngs/cmd"
)

func main() {
	cmd.Execute() // initialize cobra commands
}
