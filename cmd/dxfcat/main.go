package main

import "github.com/oy3o/dxf/internal/cli"

func main() {
	cli.Execute()
}
