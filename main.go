package main

import "github.com/valpere/chaptran/cmd"

func main() {
	cmd.Execute()
}
