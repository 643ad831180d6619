package main

import "github.com/sergev/fluxweazle/cmd"

func main() {
	cmd.Execute()
}
