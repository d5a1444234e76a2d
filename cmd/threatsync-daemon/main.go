package main

import "threatsync-daemon/internal/cli"

func main() {
	cli.Execute()
}
