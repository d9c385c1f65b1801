// Package main provides the entry point for the sample calibrator.
package main

import "sample-calibrator/cmd"

func main() {
	cmd.Execute()
}
