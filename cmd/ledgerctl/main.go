package main

import (
	"os"

	"github.com/pterm/pterm"
)

func main() {
	a := newApp(os.Stdout)
	err := newRootCmd(a).Execute()
	_ = a.close()
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
