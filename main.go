package main

import "github.com/KaramelBytes/candlechat/cmd"

func main() {
	cmd.Execute()
}
