package main

import "github.com/dayuer/starfish-go/cmd"

func main() {
	cmd.Execute()
}
