package main

import "github.com/vietddude/depositverifier/internal/cli"

func main() {
	cli.Execute()
}
