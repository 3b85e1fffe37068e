package main

import "github.com/charliek/respawn/internal/cli"

func main() {
	cli.Execute()
}
