package main

import "github.com/guardline/workforce-service/internal/commands"

func main() {
	commands.Execute()
}
