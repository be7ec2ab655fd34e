package main

import "github.com/ArnoKim89/arno-game-server/cmd"

func main() {
	cmd.Execute()
}
