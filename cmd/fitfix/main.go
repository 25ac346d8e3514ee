/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ssargent/fitfix/cmd/fitfix/cmd"

func main() {
	cmd.Execute()
}
