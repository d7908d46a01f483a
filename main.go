package main

import "github.com/agentic-research/mmdb/cmd"

func main() {
	cmd.Execute()
}
