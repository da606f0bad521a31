package main

import "github.com/circuit-synth/schsync/cmd/schsync/cmd"

func main() {
	cmd.Execute()
}
