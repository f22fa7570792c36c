package main

import "github.com/shimmerhq/anyproxy/cmd"

func main() {
	cmd.Execute()
}
