package main

import (
	"os"

	chatlinkcmder "github.com/rwahub/chatlink/cmd/chatlink"
)

func main() {
	cmd := chatlinkcmder.NewChatlinkCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
