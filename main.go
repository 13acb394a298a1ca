package main

import "github.com/RyanBlaney/sonido-spectra/cmd"

func main() {
	cmd.Execute()
}
