package main

import (
	"os"

	"github.com/0xcro3dile/medicai-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
