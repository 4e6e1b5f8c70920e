package main

import "github.com/netvigil/ispadm/internal/cli"

func main() {
	cli.Execute()
}
