package main

import (
	"fmt"
	"os"

	"github.com/vimal20002/tchegl-frontend/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
