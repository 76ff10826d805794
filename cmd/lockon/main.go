package main

import (
	"os"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}
