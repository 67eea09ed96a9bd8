package main

import "github.com/bryanchriswhite/FocusShot/cmd/focusshot/commands"

func main() {
	commands.Execute()
}
