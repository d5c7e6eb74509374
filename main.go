package main

import "Musio/cmd"

func main() {
	cmd.Execute()
}
