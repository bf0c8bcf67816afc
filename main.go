package main

import "github.com/foomo/contentsite/cmd"

func main() {
	cmd.Execute()
}
