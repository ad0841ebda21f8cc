package main

import "github.com/mvp-joe/codesum/internal/cli"

func main() {
	cli.Execute()
}
