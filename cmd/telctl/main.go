package main

import "runtelemetry/internal/cli"

func main() {
	cli.Execute()
}
