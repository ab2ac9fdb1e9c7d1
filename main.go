package main

import "github.com/stevehiehn/relaypub/cmd"

func main() {
	cmd.Execute()
}
