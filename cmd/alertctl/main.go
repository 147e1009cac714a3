package main

import "github.com/ogulcanaydogan/listing-alerts/internal/cli"

func main() {
	cli.Execute()
}
