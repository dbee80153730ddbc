package main

import (
	"fmt"
	"os"
	exit "os"
)

func main() {
	if len(os.Args) > 3 {
		os.Exit(2) // want "os.Exit call is forbidden in main function"
	}
	if len(os.Args) > 4 {
		exit.Exit(3) // want "os.Exit call is forbidden in main function"
	}

	defer func() {
		os.Exit(0)
	}()

	fail()
}

func fail() {
	fmt.Println("failing")
	os.Exit(1)
}
