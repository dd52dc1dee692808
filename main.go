package main

import "github.com/jcdickinson/cargo-extract-readme/cmd"

func main() {
	cmd.Execute()
}
