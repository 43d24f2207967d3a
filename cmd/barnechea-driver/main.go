package main

import "github.com/afalarconm/barnechea-driver/cmd"

func main() {
	cmd.Execute()
}
