package main

import "github.com/bingooyong/apphub/internal/command"

func main() {
	command.Execute()
}
